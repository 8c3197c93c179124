// Package customer provides business operations over customer profiles.
package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sabordigital/zappedido/internal/customercache"
	"github.com/sabordigital/zappedido/internal/domain"
	"github.com/sabordigital/zappedido/internal/repository"
)

const cacheTTL = 6 * time.Hour

// Service provides business operations over customer profiles.
type Service struct {
	repo  repository.CustomerRepository
	cache *customercache.Cache
	log   *slog.Logger
}

// NewService constructs a new Service instance. The cache is optional.
func NewService(repo repository.CustomerRepository, cache *customercache.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cache: cache, log: log}
}

// GetOrCreate fetches a customer by phone or creates an empty profile when
// missing. Cache misses fall through to Postgres.
func (s *Service) GetOrCreate(ctx context.Context, phone string) (*domain.Customer, error) {
	if phone == "" {
		return nil, errors.New("phone is empty")
	}

	if cached, err := s.cache.Get(ctx, phone); err == nil && cached != nil {
		return cached, nil
	}

	customer, err := s.repo.FindByPhone(ctx, phone)
	if err == nil {
		s.cacheProfile(ctx, customer)
		return customer, nil
	}

	if !errors.Is(err, repository.ErrCustomerNotFound) {
		s.logError("get_or_create.find", phone, err)
		return nil, fmt.Errorf("get customer: %w", err)
	}

	now := time.Now().UTC()
	fresh := &domain.Customer{
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, fresh); err != nil {
		s.logError("get_or_create.create", phone, err)
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.cacheProfile(ctx, fresh)
	return fresh, nil
}

// RememberDetails persists the validated name and email for later orders.
func (s *Service) RememberDetails(ctx context.Context, phone, fullName, email string) error {
	if err := s.repo.UpdateDetails(ctx, phone, fullName, email); err != nil {
		s.logError("remember_details", phone, err)
		return err
	}

	s.invalidate(ctx, phone)
	return nil
}

// RememberAddress persists the last confirmed delivery address.
func (s *Service) RememberAddress(ctx context.Context, phone, address string) error {
	if err := s.repo.UpdateAddress(ctx, phone, address); err != nil {
		s.logError("remember_address", phone, err)
		return err
	}

	s.invalidate(ctx, phone)
	return nil
}

// RecordOrder bumps the order counter after a confirmed order.
func (s *Service) RecordOrder(ctx context.Context, phone string) error {
	if err := s.repo.RecordOrder(ctx, phone); err != nil {
		s.logError("record_order", phone, err)
		return err
	}

	s.invalidate(ctx, phone)
	return nil
}

func (s *Service) cacheProfile(ctx context.Context, customer *domain.Customer) {
	if err := s.cache.Set(ctx, customer.Phone, customer, cacheTTL); err != nil {
		s.log.Warn("customer cache write failed", slog.String("phone", customer.Phone), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, phone string) {
	if err := s.cache.Invalidate(ctx, phone); err != nil {
		s.log.Warn("customer cache invalidate failed", slog.String("phone", phone), slog.Any("error", err))
	}
}

func (s *Service) logError(operation string, phone string, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("customer service operation failed",
		slog.String("operation", operation),
		slog.String("phone", phone),
		slog.Any("error", err),
	)
}
