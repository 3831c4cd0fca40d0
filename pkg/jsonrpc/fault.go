package jsonrpc

import "fmt"

// FaultKind categorizes a Fault so callers can discriminate failures programmatically.
type FaultKind string

const (
	// ServiceDown: the connection was refused or the host was unreachable.
	ServiceDown FaultKind = "ServiceDown"
	// NotAService: the response content type was not application/json.
	NotAService FaultKind = "NotAService"
	// ServiceReturnsJunk: the response body did not parse as JSON.
	ServiceReturnsJunk FaultKind = "ServiceReturnsJunk"
	// ServiceError: the response carried a protocol-level error object.
	ServiceError FaultKind = "ServiceError"
	// ConfigurationError: invalid service or procedure declarations. Raised by
	// constructors and registration only, never at call time.
	ConfigurationError FaultKind = "ConfigurationError"
	// VersionMismatch: the service version does not satisfy the client's constraint.
	VersionMismatch FaultKind = "VersionMismatch"
)

// Fault is a categorized protocol failure.
type Fault struct {
	Kind    FaultKind
	Code    int
	Message string
	Err     error
}

// Sentinels for errors.Is. A sentinel matches any Fault of the same kind.
var (
	ErrServiceDown        = &Fault{Kind: ServiceDown}
	ErrNotAService        = &Fault{Kind: NotAService}
	ErrServiceReturnsJunk = &Fault{Kind: ServiceReturnsJunk}
	ErrServiceError       = &Fault{Kind: ServiceError}
	ErrConfiguration      = &Fault{Kind: ConfigurationError}
	ErrVersionMismatch    = &Fault{Kind: VersionMismatch}
)

// NewFault builds a Fault of the given kind with a formatted message.
func NewFault(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Configurationf builds a ConfigurationError fault.
func Configurationf(format string, args ...any) *Fault {
	return NewFault(ConfigurationError, format, args...)
}

func (f *Fault) Error() string {
	if f.Message == "" {
		return string(f.Kind)
	}
	return f.Message
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Is matches sentinels by kind.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	if t.Message == "" && t.Err == nil && t.Code == 0 {
		return t.Kind == f.Kind
	}
	return t == f
}
