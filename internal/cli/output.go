package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/raytheonbbn/parliament-sub002/internal/engine"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query failed, scenarios failed
	ExitCommandError = 2 // Command error (bad input, store not openable, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	QueryID string    `json:"query_id,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// ResultData is the JSON payload of a query: one object per row mapping
// variable names to N-Triples terms. Unbound variables are omitted.
type ResultData struct {
	Vars       []string            `json:"vars"`
	Rows       []map[string]string `json:"rows"`
	DurationMS int64               `json:"duration_ms"`
}

// Rows outputs query results: a tab-aligned table for text, ResultData
// for JSON.
func (f *OutputFormatter) Rows(res *engine.Result) error {
	vars := make([]string, len(res.Vars))
	for i, v := range res.Vars {
		vars[i] = string(v)
	}

	if f.Format == "json" {
		data := ResultData{Vars: vars, Rows: make([]map[string]string, 0, len(res.Rows)), DurationMS: res.Duration.Milliseconds()}
		for _, b := range res.Rows {
			row := make(map[string]string, b.Len())
			for _, v := range res.Vars {
				if t, ok := b.Get(v); ok {
					row[string(v)] = t.String()
				}
			}
			data.Rows = append(data.Rows, row)
		}
		return f.encode(CLIResponse{Status: "ok", Data: data, QueryID: res.QueryID})
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	header := make([]string, len(res.Vars))
	for i, v := range res.Vars {
		header[i] = v.String()
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, b := range res.Rows {
		cells := make([]string, len(res.Vars))
		for i, v := range res.Vars {
			cells[i] = cell(b, v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f.Writer, "(%d rows, %s)\n", len(res.Rows), res.Duration.Round(time.Microsecond))
	return err
}

func cell(b ir.Binding, v ir.Variable) string {
	if t, ok := b.Get(v); ok {
		return t.String()
	}
	return "-"
}
