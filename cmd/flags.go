package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// addOutputFlag adds a validated --output/-o flag to cmd.
func addOutputFlag(cmd *cobra.Command, target *string, formats ...string) {
	cmd.Flags().StringVarP(target, "output", "o", formats[0],
		fmt.Sprintf("Output format (%s)", strings.Join(formats, "|")))

	AddFlagValidation(cmd, "output", func(value string) error {
		return ValidateFormat(value, formats)
	})
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort checks that portStr is a usable TCP port.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateFormat accepts one of formats, case-insensitively, and suggests the
// closest match otherwise.
func ValidateFormat(format string, formats []string) error {
	lower := strings.ToLower(format)
	for _, f := range formats {
		if lower == f {
			return nil
		}
	}

	for _, f := range formats {
		if lower != "" && (strings.HasPrefix(f, lower) || strings.HasPrefix(lower, f)) {
			return fmt.Errorf("invalid format %q, did you mean %q?", format, f)
		}
	}

	return fmt.Errorf("invalid format %q, must be one of: %s", format, strings.Join(formats, ", "))
}
