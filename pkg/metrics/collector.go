package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sabordigital/zappedido/internal/conversation"
	apperrors "github.com/sabordigital/zappedido/internal/errors"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_messages_total",
			Help: "Total number of bot messages labeled by direction and status",
		},
		[]string{"direction", "status"},
	)
	handlerDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "handler_duration_seconds",
			Help:    "Duration of message handling in seconds per state",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	validationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_failures_total",
			Help: "Total number of rejected user inputs per field",
		},
		[]string{"field"},
	)
	paymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Total number of payment outcomes per gateway",
		},
		[]string{"gateway", "result"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_conversations",
			Help: "Current number of active conversations",
		},
	)
	conversationsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversations_by_state",
			Help: "Number of conversations per state",
		},
		[]string{"state"},
	)
)

var trackedStates = []conversation.State{
	conversation.StateIdle,
	conversation.StateConfirmingOrder,
	conversation.StateProvidingDetails,
	conversation.StateConfirmingAddress,
	conversation.StateSelectingPayment,
	conversation.StateWaitingPayment,
	conversation.StateOrderConfirmed,
	conversation.StateEditingOrder,
	conversation.StateTrackingOrder,
	conversation.StateCustomerSupport,
}

func init() {
	conversation.RegisterTransitionRecorder(RecordStateTransition)
	apperrors.RegisterErrorRecorder(RecordError)
}

// RecordMessage counts an inbound or outbound message.
func RecordMessage(direction, status string) {
	if direction == "" {
		direction = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	messagesTotal.WithLabelValues(direction, status).Inc()
}

// RecordHandling observes how long a state handler took.
func RecordHandling(state string, duration time.Duration) {
	if state == "" {
		state = "unknown"
	}

	handlerDurationSeconds.WithLabelValues(state).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordValidationFailure counts a rejected input for the given field.
func RecordValidationFailure(field string) {
	if field == "" {
		field = "unknown"
	}

	validationFailuresTotal.WithLabelValues(field).Inc()
}

// RecordPayment counts a payment outcome.
func RecordPayment(gateway, result string) {
	if gateway == "" {
		gateway = "unknown"
	}
	if result == "" {
		result = "unknown"
	}

	paymentsTotal.WithLabelValues(gateway, result).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// SetActiveConversations updates the gauge for current conversations.
func SetActiveConversations(count int) {
	activeConversations.Set(float64(count))
}

// SetConversationsByState updates the gauge for the given state.
func SetConversationsByState(state string, count int) {
	if state == "" {
		state = "unknown"
	}

	conversationsByState.WithLabelValues(state).Set(float64(count))
}

// StateCollector periodically gathers conversation counts and emits gauges.
type StateCollector struct {
	fsm conversation.Machine
}

// NewStateCollector builds a metrics collector bound to the provided FSM.
func NewStateCollector(fsm conversation.Machine) *StateCollector {
	return &StateCollector{fsm: fsm}
}

// Run polls the FSM every 10 seconds, updating gauges until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	convs, err := c.fsm.All(ctx)
	if err != nil {
		return err
	}

	SetActiveConversations(len(convs))

	stateCounts := make(map[string]int, len(convs))
	for _, conv := range convs {
		label := "unknown"
		if conv != nil && conv.CurrentState != "" {
			label = string(conv.CurrentState)
		}
		stateCounts[label]++
	}

	conversationsByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		SetConversationsByState(label, stateCounts[label])
		delete(stateCounts, label)
	}

	for label, count := range stateCounts {
		SetConversationsByState(label, count)
	}

	return nil
}
