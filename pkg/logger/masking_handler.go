package logger

import (
	"context"
	"log/slog"
	"strings"
)

var secretKeys = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"verify_token",
	"dsn",
	"authorization",
}

// MaskingHandler hides credentials and truncates customer phone numbers before
// records reach any sink. Phones keep their last four digits so support can
// still correlate a log line with a conversation.
type MaskingHandler struct {
	next slog.Handler
}

// NewMaskingHandler wraps next with attribute masking.
func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MaskingHandler{next: h.next.WithAttrs(maskAttrs(attrs))}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)

	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(maskAttr(attr))
		return true
	})

	return h.next.Handle(ctx, masked)
}

func maskAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		out[i] = maskAttr(attr)
	}
	return out
}

func maskAttr(attr slog.Attr) slog.Attr {
	key := strings.ToLower(attr.Key)

	for _, secret := range secretKeys {
		if key == secret {
			attr.Value = slog.StringValue("***")
			return attr
		}
	}

	if key == "phone" || key == "user_id" {
		attr.Value = slog.StringValue(maskPhone(attr.Value.String()))
	}

	return attr
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
