// Package jsonrpc holds the JSON-RPC 1.1 vocabulary shared by the service and
// client sides: protocol constants, parameter type specs, the wire shapes of
// service descriptions and errors, and the categorized Fault type.
package jsonrpc

const (
	// Version is the protocol version carried by every request and response.
	Version = "1.1"
	// SDVersion is the only accepted service description version.
	SDVersion = "1.0"
	// MediaType is the content type of every request and response body.
	MediaType = "application/json"
	// ErrorCode is the code used for every protocol-level error. The code space is not subdivided.
	ErrorCode = 999
	// ErrorName is the name carried in every error object.
	ErrorName = "JSONRPCError"
	// DescribeMethod is the procedure every service answers with its own description.
	DescribeMethod = "system.describe"
)

// TypeSpec is a declared parameter or return type.
type TypeSpec string

const (
	TypeAny TypeSpec = "any"
	TypeBit TypeSpec = "bit"
	TypeNum TypeSpec = "num"
	TypeStr TypeSpec = "str"
	TypeArr TypeSpec = "arr"
	TypeObj TypeSpec = "obj"
	// TypeNil is only valid as a return type; the result is suppressed.
	TypeNil TypeSpec = "nil"
)

// ValidParam reports whether t may be declared for a parameter.
func (t TypeSpec) ValidParam() bool {
	switch t {
	case TypeAny, TypeBit, TypeNum, TypeStr, TypeArr, TypeObj:
		return true
	}
	return false
}

// ValidReturn reports whether t may be declared as a return type.
func (t TypeSpec) ValidReturn() bool {
	return t == TypeNil || t.ValidParam()
}

// ParamSpec declares one positional parameter. Order defines the slot index.
type ParamSpec struct {
	Name string   `json:"name" yaml:"name"`
	Type TypeSpec `json:"type" yaml:"type"`
}

// ReturnSpec declares the result type of a procedure.
type ReturnSpec struct {
	Type TypeSpec `json:"type" yaml:"type"`
}

// ProcedureDescription is the wire form of one entry in a service description.
type ProcedureDescription struct {
	Name       string      `json:"name"`
	Summary    string      `json:"summary,omitempty"`
	Help       string      `json:"help,omitempty"`
	Idempotent bool        `json:"idempotent,omitempty"`
	Params     []ParamSpec `json:"params"`
	Return     *ReturnSpec `json:"return,omitempty"`
}

// ServiceDescription is the result of system.describe.
type ServiceDescription struct {
	SDVersion string                 `json:"sdversion"`
	Name      string                 `json:"name"`
	ID        string                 `json:"id"`
	Version   string                 `json:"version,omitempty"`
	Summary   string                 `json:"summary,omitempty"`
	Help      string                 `json:"help,omitempty"`
	Address   string                 `json:"address,omitempty"`
	Procs     []ProcedureDescription `json:"procs"`
}

// Procedure returns the named procedure description, if listed.
func (sd *ServiceDescription) Procedure(name string) (*ProcedureDescription, bool) {
	for i := range sd.Procs {
		if sd.Procs[i].Name == name {
			return &sd.Procs[i], true
		}
	}
	return nil, false
}

// ErrorObject is the "error" member of a failed response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewErrorObject returns an error object with the protocol error code and name.
func NewErrorObject(message string) *ErrorObject {
	return &ErrorObject{Code: ErrorCode, Name: ErrorName, Message: message}
}

// Request is the body of a POST call.
type Request struct {
	Version string `json:"version"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}
