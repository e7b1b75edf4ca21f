package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pagos/internal/amqp"
	"pagos/internal/core"
	"pagos/internal/records"
)

type fakeRepo struct {
	payments map[string]core.Payment
	agents   []string
	next     int
	failOn   string
	closed   bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{payments: map[string]core.Payment{}}
}

func (r *fakeRepo) CreatePayment(_ context.Context, p core.Payment) (string, error) {
	if r.failOn == "create" {
		return "", errors.New("disk full")
	}
	r.next++
	p.ID = string(rune('a' + r.next - 1))
	r.payments[p.ID] = p
	return p.ID, nil
}

func (r *fakeRepo) UpdatePayment(_ context.Context, p core.Payment) error {
	if _, ok := r.payments[p.ID]; !ok {
		return records.ErrNotFound
	}
	r.payments[p.ID] = p
	return nil
}

func (r *fakeRepo) DeletePayment(_ context.Context, id string) error {
	if _, ok := r.payments[id]; !ok {
		return records.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

func (r *fakeRepo) GetPayment(_ context.Context, id string) (core.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return core.Payment{}, records.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) AddAgent(_ context.Context, name string) error {
	r.agents = append(r.agents, name)
	return nil
}

func (r *fakeRepo) Close() error {
	r.closed = true
	return nil
}

type fakePublisher struct {
	msgs []*amqp.ChangeMessage
	err  error
}

func (p *fakePublisher) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func at(day int) time.Time {
	return time.Date(2025, 3, day, 15, 0, 0, 0, time.UTC)
}

func TestPaymentService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewPaymentService(repo, pub)

	id, err := svc.CreatePayment(ctx, core.Payment{Agent: "Liam", Amount: decimal.NewFromInt(10), Reference: "1234", Timestamp: at(10)})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	moved := repo.payments[id]
	moved.Timestamp = at(9)
	if err := svc.UpdatePayment(ctx, moved); err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if err := svc.DeletePayment(ctx, id); err != nil {
		t.Fatalf("DeletePayment: %v", err)
	}
	if err := svc.AddAgent(ctx, "Zulay"); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	want := []struct {
		collection, op string
		dates          []string
	}{
		{amqp.CollectionPayments, amqp.OpCreate, []string{"2025-03-10"}},
		{amqp.CollectionPayments, amqp.OpUpdate, []string{"2025-03-10", "2025-03-09"}},
		{amqp.CollectionPayments, amqp.OpDelete, []string{"2025-03-09"}},
		{amqp.CollectionAgents, amqp.OpCreate, nil},
	}
	if len(pub.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(pub.msgs), len(want))
	}
	for i, w := range want {
		got := pub.msgs[i]
		if got.Collection != w.collection || got.Op != w.op || !reflect.DeepEqual(got.BusinessDates, w.dates) {
			t.Errorf("message %d = %+v, want %s/%s %v", i, got, w.collection, w.op, w.dates)
		}
	}
}

func TestPaymentService_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo := newFakeRepo()
	svc := NewPaymentService(repo, &fakePublisher{err: errors.New("circuit breaker is open")})

	id, err := svc.CreatePayment(context.Background(), core.Payment{Agent: "Liam", Amount: decimal.NewFromInt(1), Reference: "1234", Timestamp: at(10)})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if _, ok := repo.payments[id]; !ok {
		t.Fatal("payment should be saved despite publish failure")
	}
}

func TestPaymentService_StorageErrors(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewPaymentService(repo, pub)

	repo.failOn = "create"
	if _, err := svc.CreatePayment(ctx, core.Payment{Timestamp: at(10)}); err == nil {
		t.Error("CreatePayment should fail when storage fails")
	}
	if err := svc.UpdatePayment(ctx, core.Payment{ID: "missing", Timestamp: at(10)}); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("UpdatePayment(missing) = %v, want ErrNotFound", err)
	}
	if err := svc.DeletePayment(ctx, "missing"); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("DeletePayment(missing) = %v, want ErrNotFound", err)
	}
	if len(pub.msgs) != 0 {
		t.Errorf("failed writes published %d messages", len(pub.msgs))
	}
}

func TestPaymentService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := &PaymentService{}
		if err := service.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes storage", func(t *testing.T) {
		repo := newFakeRepo()
		if err := NewPaymentService(repo, nil).Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !repo.closed {
			t.Error("storage was not closed")
		}
	})
}
