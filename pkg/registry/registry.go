package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/morezero/jsonrpc11/pkg/events"
	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
	"github.com/morezero/jsonrpc11/pkg/semver"
)

const logPrefix = "registry:registry"

// Registry is a service's identity plus its procedure table. It is safe for
// concurrent use: registration may interleave with dispatch and describe.
type Registry struct {
	service   ServiceOptions
	publisher events.EventPublisher

	mu       sync.RWMutex
	procs    map[string]*Procedure
	order    []string
	sd       *jsonrpc.ServiceDescription
	revision int64

	disabled atomic.Bool
}

// NewRegistryParams holds parameters for NewRegistry.
type NewRegistryParams struct {
	Service   ServiceOptions
	Publisher events.EventPublisher
}

// NewRegistry validates the service identity and returns a Registry that
// already answers system.describe.
func NewRegistry(params NewRegistryParams) (*Registry, error) {
	svc := params.Service
	svc.Name = strings.TrimSpace(svc.Name)
	svc.ID = strings.TrimSpace(svc.ID)
	if svc.SDVersion == "" {
		svc.SDVersion = jsonrpc.SDVersion
	}
	if svc.SDVersion != jsonrpc.SDVersion {
		return nil, jsonrpc.Configurationf("JSON-RPC service must have an sdversion of %s (got %q)", jsonrpc.SDVersion, svc.SDVersion)
	}
	if svc.Name == "" {
		return nil, jsonrpc.Configurationf("JSON-RPC service must have a name")
	}
	if svc.ID == "" {
		return nil, jsonrpc.Configurationf("JSON-RPC service must have an id")
	}
	if svc.Version != "" {
		if err := semver.ValidateVersion(svc.Version); err != nil {
			return nil, &jsonrpc.Fault{
				Kind:    jsonrpc.ConfigurationError,
				Message: fmt.Sprintf("JSON-RPC service version %q is not a semantic version", svc.Version),
				Err:     err,
			}
		}
	}

	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	r := &Registry{
		service:   svc,
		publisher: pub,
		procs:     make(map[string]*Procedure),
	}
	r.disabled.Store(svc.Disabled)

	r.store(&Procedure{
		Name:       jsonrpc.DescribeMethod,
		Summary:    "Returns the service description",
		Idempotent: true,
		Params:     []jsonrpc.ParamSpec{},
		Return:     jsonrpc.ReturnSpec{Type: jsonrpc.TypeObj},
		Handler: func(_ context.Context, _ []any) (any, error) {
			return r.Describe(), nil
		},
	})

	slog.Info(fmt.Sprintf("%s - service %s (%s) created", logPrefix, svc.Name, svc.ID))
	return r, nil
}

// Register adds or replaces a procedure and returns its trimmed name.
// Replacement keeps the procedure's position in the service description.
func (r *Registry) Register(ctx context.Context, opts ProcedureOptions) (string, error) {
	proc, err := canonicalProcedure(opts)
	if err != nil {
		return "", err
	}
	if proc.Name == jsonrpc.DescribeMethod {
		return "", jsonrpc.Configurationf("%s is reserved", jsonrpc.DescribeMethod)
	}

	revision := r.store(proc)
	slog.Info(fmt.Sprintf("%s - registered %s (revision %d)", logPrefix, proc.Name, revision))

	event := &events.ServiceChangedEvent{
		Service:   r.service.Name,
		ServiceID: r.service.ID,
		Procedure: proc.Name,
		Action:    events.ActionRegistered,
		Revision:  revision,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.publisher.PublishChanged(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish change event for %s: %v", logPrefix, proc.Name, err))
	}
	return proc.Name, nil
}

// MustRegister is Register for static service setup; it panics on an invalid declaration.
func (r *Registry) MustRegister(opts ProcedureOptions) {
	if _, err := r.Register(context.Background(), opts); err != nil {
		panic(err)
	}
}

func (r *Registry) store(proc *Procedure) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[proc.Name]; !exists {
		r.order = append(r.order, proc.Name)
	}
	r.procs[proc.Name] = proc
	r.sd = nil
	r.revision++
	return r.revision
}

// Lookup returns the named procedure.
func (r *Registry) Lookup(name string) (*Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	proc, ok := r.procs[name]
	return proc, ok
}

// Names returns the registered procedure names in registration order,
// including system.describe.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Revision increments on every registration.
func (r *Registry) Revision() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// Service returns the service identity.
func (r *Registry) Service() ServiceOptions {
	svc := r.service
	svc.Disabled = r.disabled.Load()
	return svc
}

// Disable makes the service answer every request with 503.
func (r *Registry) Disable() {
	r.disabled.Store(true)
	slog.Info(fmt.Sprintf("%s - service %s disabled", logPrefix, r.service.Name))
}

// Enable reverses Disable.
func (r *Registry) Enable() {
	r.disabled.Store(false)
	slog.Info(fmt.Sprintf("%s - service %s enabled", logPrefix, r.service.Name))
}

// Disabled reports whether the service is disabled.
func (r *Registry) Disabled() bool {
	return r.disabled.Load()
}

func canonicalProcedure(opts ProcedureOptions) (*Procedure, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, jsonrpc.Configurationf("JSON-RPC procedure must have a name")
	}
	if opts.Handler == nil {
		return nil, jsonrpc.Configurationf("JSON-RPC procedure %s must have a handler", name)
	}

	params := make([]jsonrpc.ParamSpec, 0, len(opts.Params))
	seen := make(map[string]bool, len(opts.Params))
	for _, p := range opts.Params {
		if p.Name == "" {
			return nil, jsonrpc.Configurationf("JSON-RPC procedure %s has a parameter without a name", name)
		}
		if seen[p.Name] {
			return nil, jsonrpc.Configurationf("JSON-RPC procedure %s declares parameter %s twice", name, p.Name)
		}
		seen[p.Name] = true
		if p.Type == "" {
			p.Type = jsonrpc.TypeAny
		}
		if !p.Type.ValidParam() {
			return nil, jsonrpc.Configurationf("JSON-RPC procedure %s parameter %s has unknown type %q", name, p.Name, p.Type)
		}
		params = append(params, p)
	}

	ret := jsonrpc.ReturnSpec{Type: jsonrpc.TypeAny}
	if opts.Return != nil && opts.Return.Type != "" {
		ret = *opts.Return
	}
	if !ret.Type.ValidReturn() {
		return nil, jsonrpc.Configurationf("JSON-RPC procedure %s has unknown return type %q", name, ret.Type)
	}

	return &Procedure{
		Name:       name,
		Summary:    opts.Summary,
		Help:       opts.Help,
		Idempotent: opts.Idempotent,
		Params:     params,
		Return:     ret,
		Handler:    opts.Handler,
	}, nil
}
