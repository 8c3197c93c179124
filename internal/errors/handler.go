package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/sabordigital/zappedido/pkg/logger"
)

var errorRecorder = func(code, severity string) {}

// RegisterErrorRecorder lets the metrics package observe handled errors
// without an import cycle through the domain packages.
func RegisterErrorRecorder(recorder func(code, severity string)) {
	if recorder == nil {
		errorRecorder = func(string, string) {}
		return
	}

	errorRecorder = recorder
}

// Handler centralizes error reporting: structured log, error counter, Sentry
// for the severe ones, and the message relayed to the customer.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

// NewHandler builds the centralized error handler.
func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle reports err and returns the user-facing message plus the retry hint.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	appErr := normalize(err)

	attrs := []any{
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	h.log.Error("application error", attrs...)
	errorRecorder(appErr.Code, string(appErr.Severity))

	if h.sentryEnabled && (appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical) {
		h.sendToSentry(appErr)
	}

	return appErr.UserMessage, appErr.Retryable
}

// normalize maps any error onto the taxonomy; unclassified errors are treated
// as internal.
func normalize(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	return NewInternalError(err)
}

func (h *Handler) sendToSentry(appErr *AppError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))

		err := appErr.Unwrap()
		if err == nil {
			err = appErr
		}
		sentry.CaptureException(err)
	})
}
