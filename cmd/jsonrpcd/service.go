package main

import (
	"context"
	"strings"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
	"github.com/morezero/jsonrpc11/pkg/registry"
	"github.com/morezero/jsonrpc11/pkg/servicedef"
)

// arithmetic applies intOp when both operands are integers and floatOp otherwise.
func arithmetic(intOp func(a, b int64) int64, floatOp func(a, b float64) float64) registry.Handler {
	return func(_ context.Context, args []any) (any, error) {
		if a, ok := jsonrpc.Int64(args[0]); ok {
			if b, ok := jsonrpc.Int64(args[1]); ok {
				return intOp(a, b), nil
			}
		}
		a, _ := jsonrpc.Float64(args[0])
		b, _ := jsonrpc.Float64(args[1])
		return floatOp(a, b), nil
	}
}

func numbers(names ...string) []jsonrpc.ParamSpec {
	params := make([]jsonrpc.ParamSpec, len(names))
	for i, n := range names {
		params[i] = jsonrpc.ParamSpec{Name: n, Type: jsonrpc.TypeNum}
	}
	return params
}

// demoProcedures is the demonstration service hosted by jsonrpcd.
func demoProcedures() []registry.ProcedureOptions {
	return []registry.ProcedureOptions{
		{
			Name:       "add",
			Summary:    "Adds two numbers",
			Idempotent: true,
			Params:     numbers("x", "y"),
			Return:     &jsonrpc.ReturnSpec{Type: jsonrpc.TypeNum},
			Handler: arithmetic(
				func(a, b int64) int64 { return a + b },
				func(a, b float64) float64 { return a + b },
			),
		},
		{
			Name:    "sub",
			Summary: "Subtracts y from x",
			Params:  numbers("x", "y"),
			Return:  &jsonrpc.ReturnSpec{Type: jsonrpc.TypeNum},
			Handler: arithmetic(
				func(a, b int64) int64 { return a - b },
				func(a, b float64) float64 { return a - b },
			),
		},
		{
			Name:       "echo",
			Summary:    "Returns its argument unchanged",
			Idempotent: true,
			Params:     registry.Untyped("value"),
			Handler: func(_ context.Context, args []any) (any, error) {
				return args[0], nil
			},
		},
		{
			Name:       "concat",
			Summary:    "Joins strings with a separator",
			Idempotent: true,
			Params: []jsonrpc.ParamSpec{
				{Name: "parts", Type: jsonrpc.TypeArr},
				{Name: "sep", Type: jsonrpc.TypeStr},
			},
			Return: &jsonrpc.ReturnSpec{Type: jsonrpc.TypeStr},
			Handler: func(_ context.Context, args []any) (any, error) {
				parts, _ := args[0].([]any)
				sep, _ := args[1].(string)
				strs := make([]string, len(parts))
				for i, p := range parts {
					if s, ok := p.(string); ok {
						strs[i] = s
					} else {
						strs[i] = jsonrpc.MarshalString(p)
					}
				}
				return strings.Join(strs, sep), nil
			},
		},
		{
			Name:    "notify",
			Summary: "Accepts anything and returns nothing",
			Return:  &jsonrpc.ReturnSpec{Type: jsonrpc.TypeNil},
			Handler: func(context.Context, []any) (any, error) {
				return nil, nil
			},
		},
	}
}

// installDemo registers the demonstration procedures, applying any
// documentation from the service definition.
func installDemo(reg *registry.Registry, def *servicedef.Definition) error {
	ctx := context.Background()
	for _, opts := range demoProcedures() {
		if _, err := reg.Register(ctx, def.Document(opts)); err != nil {
			return err
		}
	}
	return nil
}
