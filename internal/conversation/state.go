package conversation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sabordigital/zappedido/internal/order"
)

// State represents a finite-state machine state of the order flow.
type State string

const (
	// StateIdle indicates that the bot is waiting for a new cart summary.
	StateIdle State = "idle"
	// StateConfirmingOrder indicates that the user is reviewing the parsed cart.
	StateConfirmingOrder State = "confirming_order"
	// StateProvidingDetails indicates that the user is entering name and e-mail.
	StateProvidingDetails State = "providing_details"
	// StateConfirmingAddress indicates that the user is entering the delivery address.
	StateConfirmingAddress State = "confirming_address"
	// StateSelectingPayment indicates that the user is choosing a payment method.
	StateSelectingPayment State = "selecting_payment"
	// StateWaitingPayment indicates that a digital payment is being polled.
	StateWaitingPayment State = "waiting_payment"
	// StateOrderConfirmed indicates that the order was persisted and confirmed.
	StateOrderConfirmed State = "order_confirmed"
	// StateEditingOrder indicates that the user is replacing the cart contents.
	StateEditingOrder State = "editing_order"
	// StateTrackingOrder indicates that the user is following an order status.
	StateTrackingOrder State = "tracking_order"
	// StateCustomerSupport indicates that the conversation was escalated to a human.
	StateCustomerSupport State = "customer_support"
)

// PersonalInfo holds the customer data collected during providing_details.
type PersonalInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Complete reports whether both fields were collected.
func (p *PersonalInfo) Complete() bool {
	return p != nil && p.Name != "" && p.Email != ""
}

// AddressInfo holds the validated delivery address and its computed fee.
type AddressInfo struct {
	Address     string          `json:"address,omitempty"`
	Valid       bool            `json:"valid,omitempty"`
	DeliveryFee decimal.Decimal `json:"delivery_fee,omitempty"`
}

// PaymentInfo holds the chosen payment method and the cash sub-step data.
type PaymentInfo struct {
	Type          string          `json:"type,omitempty"`
	Gateway       string          `json:"gateway,omitempty"`
	Label         string          `json:"label,omitempty"`
	AwaitingChange bool           `json:"awaiting_change,omitempty"`
	ChangeFor     decimal.Decimal `json:"change_for,omitempty"`
}

// Context carries the data slots accumulated during a conversation. Slots are
// merged, never replaced wholesale: a nil field leaves the stored value alone.
type Context struct {
	Order    *order.Draft  `json:"order_data,omitempty"`
	Personal *PersonalInfo `json:"personal_info,omitempty"`
	Address  *AddressInfo  `json:"address_info,omitempty"`
	Payment  *PaymentInfo  `json:"payment_info,omitempty"`
	OrderID  string        `json:"order_id,omitempty"`
}

// merge overlays non-nil slots of other onto c.
func (c *Context) merge(other *Context) {
	if other == nil {
		return
	}

	if other.Order != nil {
		c.Order = other.Order
	}
	if other.Personal != nil {
		c.Personal = other.Personal
	}
	if other.Address != nil {
		c.Address = other.Address
	}
	if other.Payment != nil {
		c.Payment = other.Payment
	}
	if other.OrderID != "" {
		c.OrderID = other.OrderID
	}
}

// Conversation captures the current FSM state for a WhatsApp user, keyed by
// phone number.
type Conversation struct {
	UserID       string    `json:"user_id"`
	CurrentState State     `json:"current_state"`
	Context      Context   `json:"context"`
	RetryCount   int       `json:"retry_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}
