package utils

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

// ErrorLogFormat defines the formatting string for error log messages.
const ErrorLogFormat = "Error: %v"

// File and directory names shared across the project.
const (
	// TransformerConfigFileName is the project-local pipeline configuration file.
	TransformerConfigFileName = ".transformer.json"
	// ApplicationConfigFileName is the local application configuration file.
	ApplicationConfigFileName = ".codetransformer.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".codetransformer"
	// GlobalConfigFileName is the global application configuration file.
	GlobalConfigFileName = "config.yaml"
	// NodeModulesDirectoryName is the dependency store directory of npm projects.
	NodeModulesDirectoryName = "node_modules"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// PackageManifestFileName is the npm package manifest.
	PackageManifestFileName = "package.json"
	// WebpackConfigFileName is the build tool configuration detected next to sources.
	WebpackConfigFileName = "webpack.config.js"
	// TypeScriptConfigFileName is the type configuration detected next to sources.
	TypeScriptConfigFileName = "tsconfig.json"
	// DefaultOutputFileName names artifacts whose plugin did not choose a file name.
	DefaultOutputFileName = "out.md"
	// EnvironmentPrefix prefixes environment variable overrides.
	EnvironmentPrefix = "CODETRANSFORMER"
)

// Messages used by the command entry point.
const (
	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "logger initialization failed: %w"
	// ApplicationExecutionFailedMessage prefixes the fatal error printed on exit.
	ApplicationExecutionFailedMessage = "codetransformer failed"
)
