package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fichas/internal/ficha"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (engine fault, engine unavailable, storage error)
	ExitCommandError = 2 // Command error (bad arguments, invalid configuration, unreadable database)
)

// Error codes reported in CLIError.Code.
const (
	CodeInternal    = "E000"
	CodeValidation  = "E001"
	CodeNotFound    = "E002"
	CodeFault       = "E003"
	CodeUnavailable = "E004"
	CodeStorage     = "E005"
	CodePayload     = "E006"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported marks errors whose result was already written; Execute
	// adds nothing to the output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// wrapOpError picks the exit code for a failed service call: bad input is
// a command error, everything else a failure.
func wrapOpError(message string, err error) *ExitError {
	if ficha.IsValidation(err) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as text, JSON or YAML.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status" yaml:"status"`                   // "ok" or "error"
	Data   any       `json:"data,omitempty" yaml:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty" yaml:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code" yaml:"code"`                           // "E001", "E002", etc.
	Message string `json:"message" yaml:"message"`                     // human-readable message
	Details any    `json:"details,omitempty" yaml:"details,omitempty"` // additional context
}

// textRenderer is implemented by results with a human-readable form.
type textRenderer interface {
	RenderText(w io.Writer) error
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	switch f.Format {
	case "json":
		return f.encodeJSON(f.Writer, CLIResponse{Status: "ok", Data: data})
	case "yaml":
		return f.encodeYAML(f.Writer, data)
	}

	if r, ok := data.(textRenderer); ok {
		return r.RenderText(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format. JSON and YAML go to
// Writer so scripts get a single document; text goes to ErrWriter.
func (f *OutputFormatter) Error(code, message string, details any) error {
	switch f.Format {
	case "json":
		return f.encodeJSON(f.Writer, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	case "yaml":
		return f.encodeYAML(f.Writer, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	w := f.GetErrWriter()
	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err using its error code and details.
func (f *OutputFormatter) Fail(err error) error {
	code, details := classify(err)
	return f.Error(code, err.Error(), details)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (f *OutputFormatter) encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// faultDetails is reported with CodeFault.
type faultDetails struct {
	Engine   string `json:"engine" yaml:"engine"`
	RunID    string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Trace    string `json:"trace,omitempty" yaml:"trace,omitempty"`
	ExitCode int    `json:"exit_code" yaml:"exit_code"`
	Stderr   string `json:"stderr,omitempty" yaml:"stderr,omitempty"`
}

// classify maps err to a CLIError code and optional details.
func classify(err error) (string, any) {
	var (
		validation *ficha.ValidationError
		fault      *ficha.CalculationFault
	)
	switch {
	case errors.As(err, &validation):
		if validation.Field != "" {
			return CodeValidation, map[string]string{"field": validation.Field}
		}
		return CodeValidation, nil
	case ficha.IsNotFound(err):
		return CodeNotFound, nil
	case errors.As(err, &fault):
		return CodeFault, faultDetails{
			Engine:   fault.Engine,
			RunID:    fault.RunID,
			Type:     fault.Type,
			Trace:    fault.Trace,
			ExitCode: fault.ExitCode,
			Stderr:   fault.Stderr,
		}
	case ficha.IsEngineUnavailable(err):
		return CodeUnavailable, nil
	case ficha.IsStorage(err):
		return CodeStorage, nil
	case ficha.IsSerialization(err):
		return CodePayload, nil
	default:
		return CodeInternal, nil
	}
}
