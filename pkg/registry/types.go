// Package registry holds a service's identity and its set of callable
// procedures, and produces the service description answered by system.describe.
package registry

import (
	"context"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// Handler is the implementation of a procedure. Args arrive in declared
// parameter order after canonicalization.
type Handler func(ctx context.Context, args []any) (any, error)

// ServiceOptions declares the identity of a service.
type ServiceOptions struct {
	// SDVersion defaults to 1.0; any other value is rejected.
	SDVersion string
	Name      string
	ID        string
	// Version is optional; when set it must be a valid semantic version.
	Version  string
	Summary  string
	Help     string
	Address  string
	Disabled bool
}

// ProcedureOptions declares one procedure. A param with an empty Type is
// treated as untyped ("any"); a nil Return defaults to "any".
type ProcedureOptions struct {
	Name       string
	Summary    string
	Help       string
	Idempotent bool
	Params     []jsonrpc.ParamSpec
	Return     *jsonrpc.ReturnSpec
	Handler    Handler
}

// Procedure is a registered, canonicalized procedure.
type Procedure struct {
	Name       string
	Summary    string
	Help       string
	Idempotent bool
	Params     []jsonrpc.ParamSpec
	Return     jsonrpc.ReturnSpec
	Handler    Handler
}

// Untyped declares parameters by bare name, each accepting any value.
func Untyped(names ...string) []jsonrpc.ParamSpec {
	params := make([]jsonrpc.ParamSpec, len(names))
	for i, name := range names {
		params[i] = jsonrpc.ParamSpec{Name: name, Type: jsonrpc.TypeAny}
	}
	return params
}

func (p *Procedure) description() jsonrpc.ProcedureDescription {
	params := make([]jsonrpc.ParamSpec, len(p.Params))
	copy(params, p.Params)
	ret := p.Return
	return jsonrpc.ProcedureDescription{
		Name:       p.Name,
		Summary:    p.Summary,
		Help:       p.Help,
		Idempotent: p.Idempotent,
		Params:     params,
		Return:     &ret,
	}
}
