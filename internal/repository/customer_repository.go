// Package repository contains SQL persistence for customer profiles.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sabordigital/zappedido/internal/domain"
)

// ErrCustomerNotFound is returned when no profile exists for a phone number.
var ErrCustomerNotFound = errors.New("customer not found")

// CustomerRepository defines persistence operations for customer profiles.
type CustomerRepository interface {
	FindByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) error
	UpdateDetails(ctx context.Context, phone, fullName, email string) error
	UpdateAddress(ctx context.Context, phone, address string) error
	RecordOrder(ctx context.Context, phone string) error
}

type customerRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewCustomerRepository creates a new SQL-backed customer repository.
func NewCustomerRepository(db *sql.DB, log *slog.Logger) CustomerRepository {
	return &customerRepository{
		db:  db,
		log: log,
	}
}

// FindByPhone retrieves a customer profile by WhatsApp phone number.
func (r *customerRepository) FindByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	const query = `
		SELECT id, phone, full_name, email, last_address, orders_count, last_order_at, created_at, updated_at
		FROM customers
		WHERE phone = $1
	`

	row := r.db.QueryRowContext(ctx, query, phone)

	var customer domain.Customer
	if err := row.Scan(
		&customer.ID,
		&customer.Phone,
		&customer.FullName,
		&customer.Email,
		&customer.LastAddress,
		&customer.OrdersCount,
		&customer.LastOrderAt,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch customer by phone", slog.String("phone", phone), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select customer by phone: %w", err)
	}

	return &customer, nil
}

// Create persists a new customer profile.
func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
		INSERT INTO customers (phone, full_name, email, last_address, orders_count, last_order_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		customer.Phone,
		customer.FullName,
		customer.Email,
		customer.LastAddress,
		customer.OrdersCount,
		customer.LastOrderAt,
		customer.CreatedAt,
		customer.UpdatedAt,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to create customer", slog.String("phone", customer.Phone), slog.Any("error", err))
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	return nil
}

// UpdateDetails stores the validated name and email for the customer.
func (r *customerRepository) UpdateDetails(ctx context.Context, phone, fullName, email string) error {
	const query = `
		UPDATE customers
		SET full_name = $2, email = $3, updated_at = NOW()
		WHERE phone = $1
	`

	if _, err := r.db.ExecContext(ctx, query, phone, fullName, email); err != nil {
		if r.log != nil {
			r.log.Error("failed to update customer details", slog.String("phone", phone), slog.Any("error", err))
		}
		return fmt.Errorf("update customer details: %w", err)
	}

	return nil
}

// UpdateAddress stores the last confirmed delivery address.
func (r *customerRepository) UpdateAddress(ctx context.Context, phone, address string) error {
	const query = `
		UPDATE customers
		SET last_address = $2, updated_at = NOW()
		WHERE phone = $1
	`

	if _, err := r.db.ExecContext(ctx, query, phone, address); err != nil {
		if r.log != nil {
			r.log.Error("failed to update customer address", slog.String("phone", phone), slog.Any("error", err))
		}
		return fmt.Errorf("update customer address: %w", err)
	}

	return nil
}

// RecordOrder bumps the order counter and stamps the last order time.
func (r *customerRepository) RecordOrder(ctx context.Context, phone string) error {
	const query = `
		UPDATE customers
		SET orders_count = orders_count + 1, last_order_at = NOW(), updated_at = NOW()
		WHERE phone = $1
	`

	if _, err := r.db.ExecContext(ctx, query, phone); err != nil {
		if r.log != nil {
			r.log.Error("failed to record customer order", slog.String("phone", phone), slog.Any("error", err))
		}
		return fmt.Errorf("record customer order: %w", err)
	}

	return nil
}
