// Package local is the single-device record store: both collections live in
// one BoltDB file as two JSON arrays under fixed keys, the layout the
// browser-only version of the app kept in local storage. Each array is read
// once at open and rewritten on every mutation.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pagos/internal/core"
	"pagos/internal/records"
)

const (
	bucketName  = "pagos"
	paymentsKey = "dailyPayments"
	agentsKey   = "agentsList_v2"
)

// Store is a records.Store and records.Clearer backed by BoltDB.
type Store struct {
	db *bolt.DB

	mu       sync.Mutex
	payments []core.Payment
	agents   []string

	paymentFeed records.Feed[[]core.Payment]
	agentFeed   records.Feed[[]string]
}

// storedPayment is the persisted shape. Older files carry numeric ids and
// amounts; both decode into the current types.
type storedPayment struct {
	ID        flexID          `json:"id"`
	Agent     string          `json:"agent"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Timestamp time.Time       `json:"timestamp"`
}

type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("payment id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// Open opens (or creates) the database at path and loads both collections.
// An empty agent list is seeded with records.DefaultAgents.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	s := &Store{db: db}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		if v := b.Get([]byte(paymentsKey)); v != nil {
			var stored []storedPayment
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("decode %s: %w", paymentsKey, err)
			}
			for _, sp := range stored {
				s.payments = append(s.payments, core.Payment{
					ID:        string(sp.ID),
					Agent:     sp.Agent,
					Amount:    sp.Amount,
					Reference: sp.Reference,
					Timestamp: sp.Timestamp,
				})
			}
		}
		if v := b.Get([]byte(agentsKey)); v != nil {
			if err := json.Unmarshal(v, &s.agents); err != nil {
				return fmt.Errorf("decode %s: %w", agentsKey, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load collections: %w", err)
	}

	if len(s.agents) == 0 {
		s.agents = records.DefaultAgents
	}
	s.agents = records.SortedAgents(s.agents)
	s.publishLocked()
	return s, nil
}

// Close ends every subscription and releases the file lock.
func (s *Store) Close() error {
	s.paymentFeed.Close()
	s.agentFeed.Close()
	return s.db.Close()
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	next := append([]core.Payment{p}, s.payments...)
	if err := s.putPayments(next); err != nil {
		return "", err
	}
	s.payments = next
	s.publishLocked()
	return p.ID, nil
}

// UpdatePayment skips the write when nothing changed.
func (s *Store) UpdatePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(p.ID)
	if i < 0 {
		return records.ErrNotFound
	}
	cur := s.payments[i]
	if cur.Agent == p.Agent && cur.Amount.Equal(p.Amount) && cur.Reference == p.Reference && cur.Timestamp.Equal(p.Timestamp) {
		return nil
	}
	next := append([]core.Payment(nil), s.payments...)
	next[i] = p
	if err := s.putPayments(next); err != nil {
		return err
	}
	s.payments = next
	s.publishLocked()
	return nil
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return records.ErrNotFound
	}
	next := make([]core.Payment, 0, len(s.payments)-1)
	next = append(next, s.payments[:i]...)
	next = append(next, s.payments[i+1:]...)
	if err := s.putPayments(next); err != nil {
		return err
	}
	s.payments = next
	s.publishLocked()
	return nil
}

func (s *Store) ClearPayments(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putPayments(nil); err != nil {
		return err
	}
	s.payments = nil
	s.publishLocked()
	return nil
}

func (s *Store) AddAgent(_ context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.agents {
		if a == name {
			return nil
		}
	}
	next := records.SortedAgents(append(append([]string(nil), s.agents...), name))
	if err := s.put(agentsKey, next); err != nil {
		return err
	}
	s.agents = next
	s.publishLocked()
	return nil
}

func (s *Store) SubscribePayments(ctx context.Context) (<-chan []core.Payment, error) {
	return s.paymentFeed.Subscribe(ctx), nil
}

func (s *Store) SubscribeAgents(ctx context.Context) (<-chan []string, error) {
	return s.agentFeed.Subscribe(ctx), nil
}

func (s *Store) indexLocked(id string) int {
	for i := range s.payments {
		if s.payments[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) putPayments(ps []core.Payment) error {
	stored := make([]storedPayment, len(ps))
	for i, p := range ps {
		stored[i] = storedPayment{
			ID:        flexID(p.ID),
			Agent:     p.Agent,
			Amount:    p.Amount,
			Reference: p.Reference,
			Timestamp: p.Timestamp,
		}
	}
	return s.put(paymentsKey, stored)
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) publishLocked() {
	ps := append([]core.Payment(nil), s.payments...)
	core.SortPayments(ps)
	s.paymentFeed.Publish(ps)
	s.agentFeed.Publish(append([]string(nil), s.agents...))
}
