package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pagos/internal/core"
	"pagos/internal/records"
)

// Store keeps both collections in process memory.
type Store struct {
	mu       sync.Mutex
	payments []core.Payment
	agents   []string

	paymentFeed records.Feed[[]core.Payment]
	agentFeed   records.Feed[[]string]
}

func New(agents []string) *Store {
	s := &Store{agents: records.SortedAgents(agents)}
	s.publishLocked()
	return s
}

// NewFromFiles seeds agents from base/seed_agents.txt, falling back to
// records.DefaultAgents when the file is missing or empty.
func NewFromFiles(base string) *Store {
	agents := readLines(filepath.Join(base, "seed_agents.txt"))
	if len(agents) == 0 {
		agents = records.DefaultAgents
	}
	return New(agents)
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	s.payments = append(s.payments, p)
	s.publishLocked()
	return p.ID, nil
}

func (s *Store) UpdatePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == p.ID {
			s.payments[i] = p
			s.publishLocked()
			return nil
		}
	}
	return records.ErrNotFound
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			s.publishLocked()
			return nil
		}
	}
	return records.ErrNotFound
}

func (s *Store) ClearPayments(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	s.agents = records.SortedAgents(append(s.agents, name))
	s.publishLocked()
	return nil
}

func (s *Store) SubscribePayments(ctx context.Context) (<-chan []core.Payment, error) {
	return s.paymentFeed.Subscribe(ctx), nil
}

func (s *Store) SubscribeAgents(ctx context.Context) (<-chan []string, error) {
	return s.agentFeed.Subscribe(ctx), nil
}

// Close ends every subscription.
func (s *Store) Close() error {
	s.paymentFeed.Close()
	s.agentFeed.Close()
	return nil
}

// publishLocked pushes copies so later mutations never reach subscribers.
func (s *Store) publishLocked() {
	ps := append([]core.Payment(nil), s.payments...)
	core.SortPayments(ps)
	s.paymentFeed.Publish(ps)
	s.agentFeed.Publish(append([]string(nil), s.agents...))
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
