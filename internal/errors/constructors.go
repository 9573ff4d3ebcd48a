package errors

// Convenience functions for the compile pipeline taxonomy

// Argument errors

func InvalidArguments(message string) *LibManagerError {
	return New(CategoryInvalidArguments, SeverityFatal, message)
}

func WrapInvalidArguments(cause error) *LibManagerError {
	return Wrap(cause, CategoryInvalidArguments, SeverityFatal, "invalid arguments")
}

// Discovery errors

func DirectoryUnreadable(dir string, cause error) *LibManagerError {
	return Wrap(cause, CategoryDirectoryUnreadable, SeverityFatal, "source directory cannot be listed").
		WithContext("path", dir)
}

// Toolchain errors

func ToolchainSpawnFailure(tool string, cause error) *LibManagerError {
	return Wrap(cause, CategoryToolchainSpawn, SeverityFatal, "toolchain binary could not be launched").
		WithContext("tool", tool)
}

// ToolchainExecutionFailure records a tool that ran but exited non-zero. The
// captured stderr is kept in the context under "stderr".
func ToolchainExecutionFailure(tool string, exitCode int, stderr []byte) *LibManagerError {
	return New(CategoryToolchainExecution, SeverityFatal, "toolchain command failed").
		WithContext("tool", tool).
		WithContext("exit_code", exitCode).
		WithContext("stderr", string(stderr))
}

// Placement errors

func ArtifactPlacementFailure(operation, path string, cause error) *LibManagerError {
	return Wrap(cause, CategoryArtifactPlacement, SeverityFatal, "artifact placement failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

func HeaderCopyFailure(header string, cause error) *LibManagerError {
	return Wrap(cause, CategoryHeaderCopy, SeverityWarning, "header copy failed").
		WithContext("header", header)
}

// HeadersIncomplete is the fatal summary raised after every header copy was
// attempted and at least one of them failed.
func HeadersIncomplete(failed int, cause error) *LibManagerError {
	return Wrap(cause, CategoryHeaderCopy, SeverityFatal, "some headers were not placed").
		WithContext("failed", failed)
}

// Internal errors

func InternalError(message string, cause error) *LibManagerError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
