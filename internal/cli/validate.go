package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aural/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Path   string              `json:"path"`
	Errors []config.FieldError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a config file",
		Long: `Validate a config file against the built-in schema without starting
the pipeline. Every violation is reported, not only the first.

Exit codes:
  0 - Config is valid
  1 - Config is invalid
  2 - Config file could not be read`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("cannot read config: %v", err)
		if os.IsNotExist(err) {
			msg = fmt.Sprintf("config file not found: %s", path)
		}
		if outErr := formatter.Error(ErrCodeNotFound, msg, nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, msg)
	}

	formatter.VerboseLog("Validating %s", path)
	_, err := config.Load(path)
	if err == nil {
		return outputValidateSuccess(formatter, path)
	}

	var verr *config.ValidationError
	if errors.As(err, &verr) {
		return outputValidationErrors(formatter, path, verr.Errors)
	}
	// Unparseable YAML is an invalid config too.
	return outputValidationErrors(formatter, path, []config.FieldError{{Message: err.Error()}})
}

func outputValidateSuccess(f *OutputFormatter, path string) error {
	if f.Format == "json" {
		return f.Success(ValidationResult{Valid: true, Path: path})
	}
	fmt.Fprintf(f.Writer, "✓ %s is valid\n", path)
	return nil
}

func outputValidationErrors(f *OutputFormatter, path string, errs []config.FieldError) error {
	msg := fmt.Sprintf("%d validation error(s)", len(errs))
	if f.Format == "json" {
		if err := f.Error(ErrCodeConfig, msg, ValidationResult{Path: path, Errors: errs}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintf(f.Writer, "✗ %s is invalid\n", path)
	for _, fe := range errs {
		fmt.Fprintf(f.Writer, "  %s\n", fe.Error())
	}
	return NewExitError(ExitFailure, msg)
}
