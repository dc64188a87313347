package transport

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/ingress/internal/runtime/errors"
)

type entry struct {
	build Builder
	caps  *Capabilities
}

// Registry maps PubSubSystem names to subscriber builders. Transport
// sub-packages add themselves from init.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// DefaultRegistry is used by the package-level functions.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register binds name to builder. Capabilities recorded earlier for name are
// kept.
func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[name]
	e.build = builder
	r.entries[name] = e
}

// RegisterWithCapabilities binds name to builder and records what the
// subscriber can report about deliveries.
func (r *Registry) RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{build: builder, caps: &caps}
}

// GetCapabilities returns the recorded capabilities of name, or a value
// carrying only the name.
func (r *Registry) GetCapabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok && e.caps != nil {
		return *e.caps
	}
	return Capabilities{Name: name}
}

// Build runs the builder selected by cfg.GetPubSubSystem. A nil logger is
// replaced by watermill.NopLogger.
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	name := cfg.GetPubSubSystem()
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok || e.build == nil {
		return nil, fmt.Errorf("%w: %q (registered: %v)", errspkg.ErrUnknownTransport, name, r.Names())
	}
	return e.build(ctx, cfg, logger)
}

// Names lists registered transports, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

func Register(name string, builder Builder) { DefaultRegistry.Register(name, builder) }

func RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.RegisterWithCapabilities(name, builder, caps)
}

func GetCapabilities(name string) Capabilities { return DefaultRegistry.GetCapabilities(name) }

func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}
