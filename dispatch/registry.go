package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mohitkumar/tokenflow/model"
)

type Handler func(ctx context.Context, req *model.DispatchRequest) error

// Registry maps implementation keys to handlers. It is injected into
// dispatchers rather than reached globally.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

func (r *Registry) Register(key string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[key]; ok {
		return fmt.Errorf("handler %s already registered", key)
	}
	r.handlers[key] = handler
	return nil
}

func (r *Registry) MustRegister(key string, handler Handler) {
	if err := r.Register(key, handler); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(key string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key]
	return h, ok
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
