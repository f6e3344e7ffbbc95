package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stevemurr/storefront/fault"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation was rejected (not found, invalid input, ...)
	ExitCommandError = 2 // Bad flags, bad configuration or an unreachable backend
)

// ExitError is an error with a process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
	// Reported is set once the error has been written to the output.
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

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope written in json format.
type Response struct {
	Status string     `json:"status"` // "ok" or "error"
	Data   any        `json:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Code    string `json:"code"` // fault kind, e.g. "not_found"
	Message string `json:"message"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

// Success writes data. In text format render is called instead, if set.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	if render != nil {
		render(f.Writer)
	}
	return nil
}

// Fail writes err and returns it as a reported ExitError.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = &ExitError{Code: ExitFailure, Message: "command failed", Err: err}
	}
	code := errorCode(err)
	if f.Format == "json" {
		json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ErrorBody{Code: code, Message: err.Error()},
		})
	} else {
		fmt.Fprintf(f.ErrWriter, "Error [%s]: %s\n", code, err)
	}
	exitErr.Reported = true
	return exitErr
}

func errorCode(err error) string {
	if k := fault.KindOf(err); k != fault.KindUnknown {
		return k.String()
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError {
		return "command_error"
	}
	return "error"
}

var printer = message.NewPrinter(language.AmericanEnglish)

// money renders an amount as US dollars.
func money(d decimal.Decimal) string {
	return printer.Sprint(currency.Symbol(currency.USD.Amount(d.InexactFloat64())))
}

func moneyf(v float64) string {
	return money(decimal.NewFromFloat(v))
}

// count renders an integer with digit grouping.
func count(n int) string {
	return printer.Sprintf("%d", n)
}
