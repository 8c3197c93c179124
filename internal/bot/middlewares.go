package bot

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/sabordigital/zappedido/internal/bot/handlers"
	apperrors "github.com/sabordigital/zappedido/internal/errors"
	"github.com/sabordigital/zappedido/internal/idempotency"
	"github.com/sabordigital/zappedido/internal/messages"
	"github.com/sabordigital/zappedido/internal/ratelimit"
	"github.com/sabordigital/zappedido/pkg/metrics"
)

// RecoveryMiddleware catches panics, reports them via the centralized handler,
// and apologizes to the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := messages.GenericError
					if errHandler != nil {
						appErr := apperrors.NewInternalError(fmt.Errorf("panic recovered: %v", r))
						if msg, _ := errHandler.Handle(c.Ctx(), appErr); msg != "" {
							userMsg = msg
						}
					}

					if sendErr := c.Send(userMsg); sendErr != nil {
						log.Error("failed to notify user about panic", slog.Any("error", sendErr))
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for
// handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := messages.GenericError
			if errHandler != nil {
				if msg, _ := errHandler.Handle(c.Ctx(), err); msg != "" {
					userMsg = msg
				}
			}

			_ = c.Send(userMsg)

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about inbound messages.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) error {
			start := time.Now()

			log.Info("handling message",
				slog.String("phone", c.UserID()),
				slog.String("message_id", c.MessageID()),
			)
			err := next(c)
			log.Info("handled message",
				slog.String("phone", c.UserID()),
				slog.String("message_id", c.MessageID()),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// MetricsMiddleware counts inbound messages and their outcomes.
func MetricsMiddleware(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c handlers.Context) error {
		err := next(c)
		if err != nil {
			metrics.RecordMessage("inbound", "failed")
		} else {
			metrics.RecordMessage("inbound", "handled")
		}
		return err
	}
}

// RateLimitMiddleware drops floods per phone number using a sliding window.
// Limiter failures fail open.
func RateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) error {
			if limiter == nil || rules == nil || rules.IsWhitelisted(c.UserID()) {
				return next(c)
			}

			limit, window := rules.PerUser()
			result, err := limiter.Check(c.Ctx(), "user:"+c.UserID(), limit, window)
			if err != nil {
				log.Warn("rate limiter check failed, allowing message", slog.Any("error", err))
				return next(c)
			}

			if !result.Allowed {
				metrics.RecordMessage("inbound", "rate_limited")
				log.Warn("message rate limited", slog.String("phone", c.UserID()))
				_ = c.Send(messages.SlowDown)
				return nil
			}

			return next(c)
		}
	}
}

// DedupeMiddleware drops repeated webhook deliveries of the same message.
func DedupeMiddleware(deduper *idempotency.Deduper, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c handlers.Context) error {
			first, err := deduper.FirstTime(c.Ctx(), c.MessageID())
			if err == nil && !first {
				metrics.RecordMessage("inbound", "duplicate")
				log.Info("duplicate message skipped", slog.String("message_id", c.MessageID()))
				return nil
			}

			return next(c)
		}
	}
}
