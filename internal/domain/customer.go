// Package domain holds the persistent entities shared across services.
package domain

import "time"

// Customer is a returning buyer identified by their WhatsApp phone number.
// Saved details let the bot skip re-asking name, email and address on
// subsequent orders.
type Customer struct {
	ID          int64
	Phone       string
	FullName    string
	Email       string
	LastAddress string
	OrdersCount int
	LastOrderAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasSavedDetails reports whether the profile carries everything needed to
// skip the details step of the order flow.
func (c *Customer) HasSavedDetails() bool {
	if c == nil {
		return false
	}
	return c.FullName != "" && c.Email != ""
}
