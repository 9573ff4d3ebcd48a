package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/libmanager/cmd/libmanager/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commands.Execute(&commands.Global{
		Ctx:    ctx,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, os.Args[1:])
	stop()
	os.Exit(code)
}
