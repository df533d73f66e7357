package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fedunion/internal/queryir"
)

// FileValidation is the validation outcome of one request file.
type FileValidation struct {
	File     string                    `json:"file"`
	Valid    bool                      `json:"valid"`
	Errors   []queryir.ValidationError `json:"errors,omitempty"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <request-file|dir>...",
		Short: "Validate query requests without compiling",
		Long: `Validate query requests without generating SQL.

Checks table indices, identifiers, operators, value types, literals, the
limit and the shard key, and reports every problem with its error code.
The shard key is only checked when sharding is enabled in the configuration.
Directories are searched for .json, .yaml, .yml and .cue request files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	vopts := queryir.Options{Sharding: cfg.Patterns.UseCountryCode}

	files, err := expandRequestPaths(paths)
	if err != nil {
		return formatter.Fail(err)
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		req, err := LoadRequest(file)
		if err != nil {
			return formatter.Fail(err)
		}
		fv := validateRequest(file, req, vopts)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	return outputValidation(formatter, result)
}

func validateRequest(file string, req queryir.QueryRequest, opts queryir.Options) FileValidation {
	vr := queryir.ValidateWith(req, opts)
	return FileValidation{File: file, Valid: len(vr.Errors) == 0, Errors: vr.Errors, Warnings: vr.Warnings}
}

// expandRequestPaths replaces directories with the request files they
// contain.
func expandRequestPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", p)}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := FindRequestFiles(p)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("scanning %s: %v", p, err)}
		}
		if len(found) == 0 {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no request files found in %s", p)}
		}
		files = append(files, found...)
	}
	return files, nil
}

// outputValidation outputs validation results.
func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	invalid := 0
	for _, f := range result.Files {
		if !f.Valid {
			invalid++
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			first := firstError(result)
			response.Error = &CLIError{Code: first.Code, Message: first.Message}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		for _, f := range result.Files {
			if f.Valid {
				fmt.Fprintf(formatter.Writer, "✓ %s\n", f.File)
			} else {
				fmt.Fprintf(formatter.Writer, "✗ %s\n", f.File)
			}
			for _, e := range f.Errors {
				fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
			}
			for _, w := range f.Warnings {
				fmt.Fprintf(formatter.Writer, "  warning: %s\n", w)
			}
		}
	}

	if invalid > 0 {
		// Invalid requests = exit code 1 (validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d request(s) invalid", invalid, len(result.Files)))
	}
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "✓ All requests valid")
	}
	return nil
}

func firstError(result ValidationResult) queryir.ValidationError {
	for _, f := range result.Files {
		if len(f.Errors) > 0 {
			return f.Errors[0]
		}
	}
	return queryir.ValidationError{Code: ErrCodeGeneric, Message: "validation failed"}
}
