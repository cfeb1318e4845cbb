package utils

// ErrorLogFormat defines the formatting string for error log messages.
const ErrorLogFormat = "Error: %v"

// Configuration locations shared by the CLI and the config loader.
const (
	// GlobalConfigDirectoryName is created under the user's home directory.
	GlobalConfigDirectoryName = ".dirstat"
	// GlobalConfigFileName lives inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
	// LocalConfigFileName is looked up in the working directory.
	LocalConfigFileName = ".dirstat.yaml"
)
