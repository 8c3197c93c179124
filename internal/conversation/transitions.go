package conversation

// validTransitions contains the permitted forward transitions in the order
// flow. Transitions to idle (cancel/reset) and to customer_support
// (escalation) are always allowed and therefore omitted here.
var validTransitions = map[State][]State{
	StateIdle: {
		StateConfirmingOrder,
	},
	StateConfirmingOrder: {
		StateProvidingDetails,
		StateConfirmingAddress,
		StateEditingOrder,
	},
	StateProvidingDetails: {
		StateConfirmingAddress,
	},
	StateConfirmingAddress: {
		StateSelectingPayment,
	},
	StateSelectingPayment: {
		StateWaitingPayment,
		StateOrderConfirmed,
	},
	StateWaitingPayment: {
		StateOrderConfirmed,
		StateSelectingPayment,
	},
	StateOrderConfirmed: {
		StateTrackingOrder,
		StateConfirmingOrder,
	},
	StateEditingOrder: {
		StateConfirmingOrder,
	},
	StateTrackingOrder: {
		StateOrderConfirmed,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle || to == StateCustomerSupport {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
