package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/conneroisu/talky/internal/logging"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String lists every error and then every warning, one per line, each
// followed by its suggestions. It is empty when there are no issues.
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	writeIssues(&builder, "errors", vr.Errors)
	writeIssues(&builder, "warnings", vr.Warnings)

	return builder.String()
}

func writeIssues(b *strings.Builder, heading string, issues []ValidationError) {
	if len(issues) == 0 {
		return
	}

	fmt.Fprintf(b, "%s:\n", heading)
	for _, issue := range issues {
		fmt.Fprintf(b, "  - %s: %s\n", issue.Field, issue.Message)
		for _, suggestion := range issue.Suggestions {
			fmt.Fprintf(b, "      hint: %s\n", suggestion)
		}
	}
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&config.Server, result)
	validateContentConfigDetails(&config.Content, result)
	validateDevelopmentConfigDetails(config, result)
	validateMetricsConfigDetails(config, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	// Port 0 lets the system pick, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Use a port between 1024-65535 for non-privileged access",
				"Set APP_PORT or TALKY_SERVER_PORT to override the default of 3000",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: "port below 1024 requires elevated privileges",
			Suggestions: []string{
				"Consider using a port above 1024",
			},
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' to serve only this machine",
					"Use '0.0.0.0' to bind to all interfaces",
				},
			})
		}
	}
}

func validateContentConfigDetails(config *ContentConfig, result *ValidationResult) {
	if config.BaseDir == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "content.base_dir",
			Value:   config.BaseDir,
			Message: "base directory is required",
			Suggestions: []string{
				"Set BASE_DIR or TALKY_CONTENT_BASE_DIR",
				"Pass --base-dir on the command line",
			},
		})
	} else if info, err := os.Stat(config.BaseDir); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "content.base_dir",
			Value:   config.BaseDir,
			Message: fmt.Sprintf("base directory is not accessible: %v", err),
			Suggestions: []string{
				"Check the path for typos",
				"Ensure the directory exists and is readable",
			},
		})
	} else if !info.IsDir() {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "content.base_dir",
			Value:   config.BaseDir,
			Message: "base directory is not a directory",
		})
	}

	if err := validateFilename(config.OverrideFilename); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "content.override_filename",
			Value:   config.OverrideFilename,
			Message: err.Error(),
			Suggestions: []string{
				"Use a bare file name such as '_index_talky.html'",
			},
		})
	}

	for i, ext := range config.InlineExtensions {
		if ext == "" || strings.ContainsAny(ext, `./\`) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("content.inline_extensions[%d]", i),
				Value:   ext,
				Message: "extension must be non-empty and contain no dot or separator",
				Suggestions: []string{
					"Write 'md' rather than '.md'",
				},
			})
		}
	}

	if config.DefaultTemplate != "" {
		if info, err := os.Stat(config.DefaultTemplate); err != nil || info.IsDir() {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "content.default_template",
				Value:   config.DefaultTemplate,
				Message: "default template must be a readable file",
				Suggestions: []string{
					"Leave it empty to use the built-in template",
				},
			})
		}
	}
}

func validateDevelopmentConfigDetails(config *Config, result *ValidationResult) {
	dev := &config.Development
	if !dev.LiveReload {
		return
	}

	if !strings.HasPrefix(dev.LiveReloadPath, "/") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "development.live_reload_path",
			Value:   dev.LiveReloadPath,
			Message: "live reload path must start with '/'",
		})
	}

	if dev.Debounce <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "development.debounce",
			Value:   dev.Debounce,
			Message: "debounce must be positive",
			Suggestions: []string{
				"The default is 300ms",
			},
		})
	}

	if config.Server.Host != "" && config.Server.Host != "localhost" && !isLoopback(config.Server.Host) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "development.live_reload",
			Value:   config.Server.Host,
			Message: "live reload is enabled on a non-loopback address",
			Suggestions: []string{
				"Bind to 'localhost' while developing templates",
			},
		})
	}
}

func validateMetricsConfigDetails(config *Config, result *ValidationResult) {
	if config.Metrics.Addr == "" {
		return
	}

	if _, _, err := net.SplitHostPort(config.Metrics.Addr); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "metrics.addr",
			Value:   config.Metrics.Addr,
			Message: err.Error(),
			Suggestions: []string{
				"Use host:port, for example '127.0.0.1:9090' or ':9090'",
			},
		})
		return
	}

	if config.Metrics.Addr == config.Addr() {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "metrics.addr",
			Value:   config.Metrics.Addr,
			Message: "metrics must listen on a different address than content",
		})
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.level",
			Value:   config.Level,
			Message: err.Error(),
			Suggestions: []string{
				"Use one of: debug, info, warn, error",
			},
		})
	}

	if !slices.Contains([]string{"", "text", "json"}, config.Format) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.format",
			Value:   config.Format,
			Message: fmt.Sprintf("unknown log format '%s'", config.Format),
			Suggestions: []string{
				"Use 'text' or 'json'",
			},
		})
	}
}

// Helper validation functions

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

func validateFilename(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("file name cannot be empty")
	case name == "." || name == "..":
		return fmt.Errorf("file name cannot be %q", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("file name must not contain a path separator")
	}
	return nil
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
