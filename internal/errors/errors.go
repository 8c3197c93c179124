// Package errors defines the application error taxonomy: every failure that
// reaches the middleware chain is normalized into an AppError carrying a
// severity, a retry hint and the message shown to the customer.
package errors

import "fmt"

// Severity drives logging and Sentry reporting.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError is a classified application error.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewInternalError classifies an unexpected failure inside the bot itself,
// recovered panics included.
func NewInternalError(cause error) *AppError {
	var underlying string
	if cause != nil {
		underlying = cause.Error()
	}

	return &AppError{
		Code:        "E100",
		Message:     fmt.Sprintf("internal error: %s", underlying),
		UserMessage: "Ops, algo deu errado por aqui. 😅 Tente novamente em instantes, por favor.",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}

// NewExternalAPIError classifies a failure of an upstream service: the order
// backend, a payment gateway or the WhatsApp Cloud API.
func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("external api error: %s", apiName),
		UserMessage: "O serviço está temporariamente indisponível. Tente novamente em instantes.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}
