// Package jobs runs background work through asynq: delayed follow-up nudges
// and periodic conversation cleanup.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeOrderFollowUp       = "order:followup"
	TaskTypeConversationCleanup = "conversation:cleanup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type OrderFollowUpPayload struct {
	Phone   string `json:"phone"`
	OrderID string `json:"order_id"`
}

func NewOrderFollowUpTask(phone, orderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderFollowUpPayload{Phone: phone, OrderID: orderID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeOrderFollowUp, payload, asynq.Queue(QueueDefault)), nil
}

func NewConversationCleanupTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskTypeConversationCleanup, nil, asynq.Queue(QueueLow)), nil
}
