// Package canon binds the positional and named arguments of a call to a
// procedure's declared parameters, coercing values to the declared types.
package canon

import (
	"fmt"
	"strconv"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// Error is an argument binding failure. It is reported to the caller as a
// protocol error with code 999.
type Error struct {
	Param   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func failf(param, format string, args ...any) *Error {
	return &Error{Param: param, Message: fmt.Sprintf(format, args...)}
}

// Canonicalize returns the argument list in declared parameter order.
//
// Slot i is filled from positional[i] when that is non-nil, then from
// named[params[i].Name], then from named[strconv.Itoa(i)]. Entries consumed
// from named are deleted from it. A procedure declaring no parameters takes
// positional arguments unchecked but rejects named ones.
func Canonicalize(params []jsonrpc.ParamSpec, positional []any, named map[string]any) ([]any, error) {
	if len(params) == 0 {
		if len(named) > 0 {
			return nil, failf("", "Parameters passed to method declared to take none.")
		}
		args := make([]any, len(positional))
		copy(args, positional)
		return args, nil
	}

	args := make([]any, len(params))
	for i, p := range params {
		byName, hasName := named[p.Name]
		idx := strconv.Itoa(i)
		var byIndex any
		hasIndex := false
		if idx != p.Name {
			byIndex, hasIndex = named[idx]
		}
		if hasName && hasIndex {
			return nil, failf(p.Name, "You cannot set the parameter %s both by name and position", p.Name)
		}
		delete(named, p.Name)
		delete(named, idx)

		var arg any
		switch {
		case i < len(positional) && positional[i] != nil:
			arg = positional[i]
		case hasName:
			arg = byName
		case hasIndex:
			arg = byIndex
		}

		coerced, err := Coerce(p, arg)
		if err != nil {
			return nil, err
		}
		args[i] = coerced
	}

	if len(named) > 0 {
		return nil, failf("", "Excess parameters passed (%s)", jsonrpc.MarshalString(named))
	}
	if len(positional) > len(params) {
		return nil, failf("", "Excess parameters passed (%s)", jsonrpc.MarshalString(positional[len(params):]))
	}
	return args, nil
}

// Coerce checks one argument against its declared type. Only "any" accepts
// an absent (nil) argument. Strings are converted for "num" when they hold a
// decimal number and numbers are converted for "str".
func Coerce(p jsonrpc.ParamSpec, arg any) (any, error) {
	kind := jsonrpc.KindOf(arg)
	switch p.Type {
	case jsonrpc.TypeBit:
		if kind != jsonrpc.KindBool {
			return nil, failf(p.Name, "The arg %s must be literally true or false (was %s)", p.Name, jsonrpc.MarshalString(arg))
		}
	case jsonrpc.TypeNum:
		switch kind {
		case jsonrpc.KindNumber:
		case jsonrpc.KindString:
			if n, ok := jsonrpc.ParseNumber(stringValue(arg)); ok {
				return n, nil
			}
			return nil, failf(p.Name, "The arg %s must be numeric (was %s)", p.Name, jsonrpc.MarshalString(arg))
		default:
			return nil, failf(p.Name, "The arg %s must be numeric (was %s)", p.Name, jsonrpc.MarshalString(arg))
		}
	case jsonrpc.TypeStr:
		switch kind {
		case jsonrpc.KindString:
		case jsonrpc.KindNumber:
			s, _ := jsonrpc.NumberString(arg)
			return s, nil
		default:
			return nil, failf(p.Name, "The arg %s must be a string (was %s)", p.Name, jsonrpc.MarshalString(arg))
		}
	case jsonrpc.TypeArr:
		if kind != jsonrpc.KindArray {
			return nil, failf(p.Name, "The arg %s must be an array (was %s)", p.Name, jsonrpc.MarshalString(arg))
		}
	case jsonrpc.TypeObj:
		if kind != jsonrpc.KindObject {
			return nil, failf(p.Name, "The arg %s must be a JSON object (was %s)", p.Name, jsonrpc.MarshalString(arg))
		}
	}
	return arg, nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}
