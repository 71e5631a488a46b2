package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "global/max_parallel")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidInstallMessages returns the accepted cmake install_message values
func ValidInstallMessages() []string {
	return []string{"always", "lazy", "never"}
}

// ValidHosts returns the accepted cmake host architectures
func ValidHosts() []string {
	return []string{"x86", "x64", "arm64"}
}

// Validate checks the resolved configuration for invalid values and returns
// all validation errors found. Type errors are caught earlier, when layers
// are applied; this covers value ranges and enumerations.
func (r *Resolved) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, r.validateGlobal()...)
	errors = append(errors, r.validateCmake()...)
	errors = append(errors, r.validateTools()...)
	errors = append(errors, r.validateTransifex()...)
	errors = append(errors, r.validatePaths()...)

	return errors
}

func (r *Resolved) validateGlobal() []ValidationError {
	var errors []ValidationError

	if r.Global.OutputLogLevel < 0 || r.Global.OutputLogLevel > 6 {
		errors = append(errors, ValidationError{
			Field:   "global/output_log_level",
			Value:   r.Global.OutputLogLevel,
			Message: "must be between 0 (silent) and 6 (dump)",
		})
	}
	if r.Global.FileLogLevel < 0 || r.Global.FileLogLevel > 6 {
		errors = append(errors, ValidationError{
			Field:   "global/file_log_level",
			Value:   r.Global.FileLogLevel,
			Message: "must be between 0 (silent) and 6 (dump)",
		})
	}

	if r.Global.MaxParallel < 0 {
		errors = append(errors, ValidationError{
			Field:   "global/max_parallel",
			Value:   r.Global.MaxParallel,
			Message: "must be non-negative (0 uses all CPUs)",
		})
	}
	const maxParallelLimit = 100
	if r.Global.MaxParallel > maxParallelLimit {
		errors = append(errors, ValidationError{
			Field:   "global/max_parallel",
			Value:   r.Global.MaxParallel,
			Message: fmt.Sprintf("exceeds maximum of %d", maxParallelLimit),
		})
	}

	return errors
}

func (r *Resolved) validateCmake() []ValidationError {
	var errors []ValidationError

	if msg := strings.ToLower(r.Cmake.InstallMessage); msg != "" && !slices.Contains(ValidInstallMessages(), msg) {
		errors = append(errors, ValidationError{
			Field:   "cmake/install_message",
			Value:   r.Cmake.InstallMessage,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidInstallMessages(), ", ")),
		})
	}

	if r.Cmake.Host != "" && !slices.Contains(ValidHosts(), r.Cmake.Host) {
		errors = append(errors, ValidationError{
			Field:   "cmake/host",
			Value:   r.Cmake.Host,
			Message: fmt.Sprintf("must be empty (native) or one of: %s", strings.Join(ValidHosts(), ", ")),
		})
	}

	return errors
}

func (r *Resolved) validateTools() []ValidationError {
	var errors []ValidationError

	tools := map[string]string{
		"tools/git":      r.Tools.Git,
		"tools/cmake":    r.Tools.Cmake,
		"tools/sevenz":   r.Tools.SevenZ,
		"tools/lrelease": r.Tools.LRelease,
		"tools/iscc":     r.Tools.ISCC,
		"tools/tx":       r.Tools.TX,
	}
	for _, field := range []string{"tools/git", "tools/cmake", "tools/sevenz", "tools/lrelease", "tools/iscc", "tools/tx"} {
		if tools[field] == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   tools[field],
				Message: "cannot be empty",
			})
		}
	}

	return errors
}

func (r *Resolved) validateTransifex() []ValidationError {
	var errors []ValidationError

	if r.Transifex.Minimum < 0 || r.Transifex.Minimum > 100 {
		errors = append(errors, ValidationError{
			Field:   "transifex/minimum",
			Value:   r.Transifex.Minimum,
			Message: "must be a percentage between 0 and 100",
		})
	}

	return errors
}

func (r *Resolved) validatePaths() []ValidationError {
	var errors []ValidationError

	if path := r.Paths.Prefix; path != "" {
		if strings.ContainsRune(path, '\x00') {
			errors = append(errors, ValidationError{
				Field:   "paths/prefix",
				Value:   path,
				Message: "path contains invalid null character",
			})
		}

		const maxPathLength = 4096
		if len(path) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   "paths/prefix",
				Value:   path,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}
