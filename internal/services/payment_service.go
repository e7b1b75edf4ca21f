package services

import (
	"context"
	"fmt"
	"log/slog"

	"pagos/internal/amqp"
	"pagos/internal/core"
)

// Repository is the durable side of the service.
type Repository interface {
	CreatePayment(ctx context.Context, p core.Payment) (string, error)
	UpdatePayment(ctx context.Context, p core.Payment) error
	DeletePayment(ctx context.Context, id string) error
	GetPayment(ctx context.Context, id string) (core.Payment, error)
	AddAgent(ctx context.Context, name string) error
	Close() error
}

// ChangePublisher announces committed writes to other processes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
	Close() error
}

// PaymentService orchestrates payment writes across SQLite and AMQP.
type PaymentService struct {
	storage   Repository
	publisher ChangePublisher
}

// NewPaymentService builds a service; publisher may be nil for a single
// process deployment.
func NewPaymentService(storage Repository, publisher ChangePublisher) *PaymentService {
	return &PaymentService{
		storage:   storage,
		publisher: publisher,
	}
}

// CreatePayment saves p locally and publishes a change message.
func (s *PaymentService) CreatePayment(ctx context.Context, p core.Payment) (string, error) {
	id, err := s.storage.CreatePayment(ctx, p)
	if err != nil {
		return "", fmt.Errorf("save payment: %w", err)
	}

	s.publish(ctx, amqp.NewChangeMessage(amqp.CollectionPayments, amqp.OpCreate, id, p.BusinessDate()))
	return id, nil
}

// UpdatePayment replaces a payment. The change message names both the old
// and the new business date so both daily totals get recomputed.
func (s *PaymentService) UpdatePayment(ctx context.Context, p core.Payment) error {
	prev, err := s.storage.GetPayment(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if err := s.storage.UpdatePayment(ctx, p); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	s.publish(ctx, amqp.NewChangeMessage(amqp.CollectionPayments, amqp.OpUpdate, p.ID, prev.BusinessDate(), p.BusinessDate()))
	return nil
}

func (s *PaymentService) DeletePayment(ctx context.Context, id string) error {
	prev, err := s.storage.GetPayment(ctx, id)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if err := s.storage.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}

	s.publish(ctx, amqp.NewChangeMessage(amqp.CollectionPayments, amqp.OpDelete, id, prev.BusinessDate()))
	return nil
}

func (s *PaymentService) AddAgent(ctx context.Context, name string) error {
	if err := s.storage.AddAgent(ctx, name); err != nil {
		return fmt.Errorf("add agent: %w", err)
	}

	s.publish(ctx, amqp.NewChangeMessage(amqp.CollectionAgents, amqp.OpCreate, name))
	return nil
}

// publish never fails the caller: the write is already committed locally
// and the sync worker reconciles on its next pass.
func (s *PaymentService) publish(ctx context.Context, msg *amqp.ChangeMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping change message",
			"collection", msg.Collection, "op", msg.Op)
		return
	}
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"collection", msg.Collection,
			"op", msg.Op,
			"id", msg.ID,
			"error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *PaymentService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close payment service: %v", errs)
	}

	return nil
}
