package sender

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"certalert/internal/entity"

	"go.uber.org/zap"
)

type Transport interface {
	Name() string
	Send(ctx context.Context, msg entity.Message) error
}

// Registry holds the transports built at startup, keyed by provider name.
type Registry struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

func NewRegistry(ts ...Transport) *Registry {
	r := &Registry{transports: make(map[string]Transport, len(ts))}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Transport) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[t.Name()] = t
}

func (r *Registry) Get(name string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transports[name]
	if !ok {
		return nil, fmt.Errorf("sender.Registry.Get: %q: %w", name, entity.ErrUnknownProvider)
	}
	return t, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.transports))
	for name := range r.transports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the named transport. An empty or unregistered name falls back
// to the log transport with a warning.
func (r *Registry) Select(name string, log *zap.Logger) Transport {
	if name != "" {
		if t, err := r.Get(name); err == nil {
			return t
		}
		log.Warn("transport provider not available, falling back to log transport",
			zap.String("provider", name),
			zap.Strings("available", r.Names()),
		)
	}

	if t, err := r.Get(ProviderLog); err == nil {
		return t
	}
	return NewLogTransport(log)
}
