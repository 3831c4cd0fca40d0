package canon

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

const canonTestPrefix = "canon:canon_test"

func params(specs ...string) []jsonrpc.ParamSpec {
	out := make([]jsonrpc.ParamSpec, 0, len(specs)/2)
	for i := 0; i+1 < len(specs); i += 2 {
		out = append(out, jsonrpc.ParamSpec{Name: specs[i], Type: jsonrpc.TypeSpec(specs[i+1])})
	}
	return out
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name       string
		params     []jsonrpc.ParamSpec
		positional []any
		named      map[string]any
		want       []any
		wantErr    string
	}{
		{
			name:       "positional",
			params:     params("x", "num", "y", "num"),
			positional: []any{json.Number("10"), json.Number("25")},
			want:       []any{json.Number("10"), json.Number("25")},
		},
		{
			name:   "named in any order",
			params: params("x", "num", "y", "num"),
			named:  map[string]any{"y": json.Number("3"), "x": json.Number("4")},
			want:   []any{json.Number("4"), json.Number("3")},
		},
		{
			name:   "by index",
			params: params("x", "any", "y", "any"),
			named:  map[string]any{"1": "b", "0": "a"},
			want:   []any{"a", "b"},
		},
		{
			name:   "mixed name and index",
			params: params("x", "any", "y", "any"),
			named:  map[string]any{"0": "a", "y": "b"},
			want:   []any{"a", "b"},
		},
		{
			name:       "positional wins over named",
			params:     params("x", "any"),
			positional: []any{"pos"},
			named:      map[string]any{"x": "named"},
			want:       []any{"pos"},
		},
		{
			name:       "nil positional falls through to named",
			params:     params("x", "any"),
			positional: []any{nil},
			named:      map[string]any{"x": "named"},
			want:       []any{"named"},
		},
		{
			name:    "both by name and position",
			params:  params("x", "any"),
			named:   map[string]any{"x": 1, "0": 2},
			wantErr: "You cannot set the parameter x both by name and position",
		},
		{
			name:   "param named like its own index",
			params: params("0", "any"),
			named:  map[string]any{"0": "zero"},
			want:   []any{"zero"},
		},
		{
			name:    "named args to a method taking none",
			named:   map[string]any{"x": 1},
			wantErr: "Parameters passed to method declared to take none.",
		},
		{
			name:       "positional args to a method taking none pass through",
			positional: []any{"a", json.Number("1")},
			want:       []any{"a", json.Number("1")},
		},
		{
			name:    "excess named",
			params:  params("x", "any"),
			named:   map[string]any{"x": 1, "z": true},
			wantErr: `Excess parameters passed ({"z":true})`,
		},
		{
			name:       "excess positional",
			params:     params("x", "num", "y", "num"),
			positional: []any{json.Number("10"), json.Number("20"), json.Number("30"), json.Number("40")},
			wantErr:    "Excess parameters passed ([30,40])",
		},
		{
			name:       "missing numeric",
			params:     params("x", "num", "y", "num"),
			positional: []any{json.Number("10")},
			wantErr:    "The arg y must be numeric (was null)",
		},
		{
			name:    "wrong type",
			params:  params("x", "num", "y", "num"),
			named:   map[string]any{"y": json.Number("10"), "x": "blah"},
			wantErr: `The arg x must be numeric (was "blah")`,
		},
		{
			name:       "missing untyped is nil",
			params:     params("x", "any", "y", "any"),
			positional: []any{"a"},
			want:       []any{"a", nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.params, tt.positional, tt.named)
			if tt.wantErr != "" {
				var cerr *Error
				if !errors.As(err, &cerr) {
					t.Fatalf("%s - expected *Error, got %v", canonTestPrefix, err)
				}
				if cerr.Message != tt.wantErr {
					t.Errorf("%s - message = %q, want %q", canonTestPrefix, cerr.Message, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", canonTestPrefix, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s - got %#v, want %#v", canonTestPrefix, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_ConsumesNamed(t *testing.T) {
	named := map[string]any{"x": 1, "1": 2}
	if _, err := Canonicalize(params("x", "any", "y", "any"), nil, named); err != nil {
		t.Fatalf("%s - unexpected error: %v", canonTestPrefix, err)
	}
	if len(named) != 0 {
		t.Errorf("%s - named args not consumed: %v", canonTestPrefix, named)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		typ     jsonrpc.TypeSpec
		arg     any
		want    any
		wantErr string
	}{
		{"bit true", jsonrpc.TypeBit, true, true, ""},
		{"bit false", jsonrpc.TypeBit, false, false, ""},
		{"bit string", jsonrpc.TypeBit, "true", nil, `The arg a must be literally true or false (was "true")`},
		{"bit number", jsonrpc.TypeBit, json.Number("1"), nil, "The arg a must be literally true or false (was 1)"},
		{"num number", jsonrpc.TypeNum, json.Number("2.5"), json.Number("2.5"), ""},
		{"num native", jsonrpc.TypeNum, 7, 7, ""},
		{"num integer string", jsonrpc.TypeNum, "12", json.Number("12"), ""},
		{"num float string", jsonrpc.TypeNum, "1.5", json.Number("1.5"), ""},
		{"num big integer string", jsonrpc.TypeNum, "99999999999999999999", json.Number("99999999999999999999"), ""},
		{"num padded string", jsonrpc.TypeNum, "012", nil, `The arg a must be numeric (was "012")`},
		{"num array", jsonrpc.TypeNum, []any{}, nil, "The arg a must be numeric (was [])"},
		{"num nil", jsonrpc.TypeNum, nil, nil, "The arg a must be numeric (was null)"},
		{"str string", jsonrpc.TypeStr, "hi", "hi", ""},
		{"str number", jsonrpc.TypeStr, json.Number("42"), "42", ""},
		{"str float", jsonrpc.TypeStr, 0.5, "0.5", ""},
		{"str bool", jsonrpc.TypeStr, true, nil, "The arg a must be a string (was true)"},
		{"arr array", jsonrpc.TypeArr, []any{"x"}, []any{"x"}, ""},
		{"arr typed slice", jsonrpc.TypeArr, []int{1}, []int{1}, ""},
		{"arr object", jsonrpc.TypeArr, map[string]any{}, nil, "The arg a must be an array (was {})"},
		{"obj object", jsonrpc.TypeObj, map[string]any{"k": "v"}, map[string]any{"k": "v"}, ""},
		{"obj string", jsonrpc.TypeObj, "<b>", nil, `The arg a must be a JSON object (was "<b>")`},
		{"any nil", jsonrpc.TypeAny, nil, nil, ""},
		{"any value", jsonrpc.TypeAny, "x", "x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(jsonrpc.ParamSpec{Name: "a", Type: tt.typ}, tt.arg)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Errorf("%s - error = %v, want %q", canonTestPrefix, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", canonTestPrefix, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s - got %#v, want %#v", canonTestPrefix, got, tt.want)
			}
		})
	}
}
