package whatsapp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sabordigital/zappedido/internal/bot"
)

// MessageHandler consumes inbound messages parsed from webhook deliveries.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg bot.Inbound)
}

// Webhook receives Cloud API callbacks. Deliveries are acknowledged
// immediately and processed asynchronously; Meta retries anything that does
// not get a fast 200.
type Webhook struct {
	verifyToken string
	handler     MessageHandler
	log         *slog.Logger
}

// NewWebhook builds the webhook endpoint handler.
func NewWebhook(verifyToken string, handler MessageHandler, log *slog.Logger) *Webhook {
	if log == nil {
		log = slog.Default()
	}

	return &Webhook{
		verifyToken: verifyToken,
		handler:     handler,
		log:         log,
	}
}

// Register mounts the webhook routes on the mux.
func (w *Webhook) Register(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", w.serve)
}

func (w *Webhook) serve(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.verify(rw, r)
	case http.MethodPost:
		w.receive(rw, r)
	default:
		rw.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verify answers Meta's subscription handshake.
func (w *Webhook) verify(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != w.verifyToken {
		w.log.Warn("webhook verification rejected")
		rw.WriteHeader(http.StatusForbidden)
		return
	}

	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte(q.Get("hub.challenge")))
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (w *Webhook) receive(rw http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.log.Warn("failed to decode webhook payload", slog.Any("error", err))
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	// ack before processing
	rw.WriteHeader(http.StatusOK)

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			profiles := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				profiles[contact.WaID] = contact.Profile.Name
			}

			for _, msg := range change.Value.Messages {
				if msg.Type != "text" {
					w.log.Info("ignoring non-text message",
						slog.String("type", msg.Type),
						slog.String("message_id", msg.ID),
					)
					continue
				}

				inbound := bot.Inbound{
					From:        msg.From,
					MessageID:   msg.ID,
					ProfileName: profiles[msg.From],
					Text:        msg.Text.Body,
				}

				go w.handler.HandleMessage(context.Background(), inbound)
			}
		}
	}
}
