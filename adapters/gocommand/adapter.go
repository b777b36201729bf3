package gocommand

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// ValidateMessageContract requires a non-empty Type() and runs Validate()
// when the message has one.
func ValidateMessageContract(msg any) error {
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message %T must implement Type() string", msg)
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message %T has an empty type", msg)
	}
	return command.ValidateMessage(msg)
}

// Registry couples a go-command registry with the dispatcher subscriptions
// made through it so a ledger can be attached and detached as a unit.
type Registry struct {
	mu          sync.Mutex
	registry    *command.Registry
	subs        Subscriptions
	initialized bool
}

func NewRegistry(registry *command.Registry) *Registry {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Registry{registry: registry}
}

func (r *Registry) Unwrap() *command.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Registry) AddResolver(key string, resolver command.Resolver) error {
	if r == nil || r.registry == nil {
		return errRegistryNotConfigured
	}
	return r.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors every registered handler into a go-job queue
// registry so messages can also be executed asynchronously.
func (r *Registry) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return r.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (r *Registry) HasResolver(key string) bool {
	if r == nil || r.registry == nil {
		return false
	}
	return r.registry.HasResolver(strings.TrimSpace(key))
}

// Initialize runs the registry resolvers once. Later calls are no-ops.
func (r *Registry) Initialize() error {
	if r == nil || r.registry == nil {
		return errRegistryNotConfigured
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return nil
	}
	if err := r.registry.Initialize(); err != nil {
		return err
	}
	r.initialized = true
	return nil
}

// Close detaches every handler subscribed through r from the dispatcher.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	subs.Unsubscribe()
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Registry) track(sub commanddispatcher.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
}

// Subscriptions groups dispatcher subscriptions.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, sub := range s {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// RegisterCommand subscribes cmd to the dispatcher and records it in the
// registry. A failed registration leaves no subscription behind.
func RegisterCommand[T any](r *Registry, cmd command.Commander[T], runnerOpts ...runner.Option) error {
	if r == nil || r.registry == nil {
		return errRegistryNotConfigured
	}
	if cmd == nil {
		return fmt.Errorf("gocommand: command is required")
	}
	return r.attach(cmd, commanddispatcher.SubscribeCommand(cmd, runnerOpts...))
}

func RegisterQuery[T any, R any](r *Registry, qry command.Querier[T, R], runnerOpts ...runner.Option) error {
	if r == nil || r.registry == nil {
		return errRegistryNotConfigured
	}
	if qry == nil {
		return fmt.Errorf("gocommand: query is required")
	}
	return r.attach(qry, commanddispatcher.SubscribeQuery(qry, runnerOpts...))
}

func (r *Registry) attach(handler any, sub commanddispatcher.Subscription) error {
	if err := r.registry.RegisterCommand(handler); err != nil {
		if sub != nil {
			sub.Unsubscribe()
		}
		return err
	}
	r.track(sub)
	return nil
}

// Dispatch checks the message contract before handing msg to the
// dispatcher, so malformed messages never reach a handler.
func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessageContract(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := ValidateMessageContract(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}

var errRegistryNotConfigured = fmt.Errorf("gocommand: registry is not configured")
