package commsutil

import (
	"regexp"
)

// Default COMMS subjects.
const (
	SubjectChangeEvent = "jsonrpc.changed"
	// SubjectServicePrefix prefixes the request subject a service answers on.
	SubjectServicePrefix = "jsonrpc.svc"
	// DefaultCacheBucket is the JetStream key/value bucket for cached call results.
	DefaultCacheBucket = "jsonrpc_cache"
)

var unsafeSubjectChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// BuildChangeSubject builds the per-service change event subject. Characters
// that are not valid in a subject token are replaced with underscores.
func BuildChangeSubject(service string) string {
	return SubjectChangeEvent + "." + SafeToken(service)
}

// BuildServiceSubject builds the request subject for a service.
func BuildServiceSubject(service string) string {
	return SubjectServicePrefix + "." + SafeToken(service)
}

// Message headers carrying the HTTP request line and status over COMMS.
const (
	HeaderVerb      = "Jsonrpc-Verb"
	HeaderProcedure = "Jsonrpc-Procedure"
	HeaderQuery     = "Jsonrpc-Query"
	HeaderStatus    = "Jsonrpc-Status"
)

// SafeToken turns s into a single subject token.
func SafeToken(s string) string {
	if s == "" {
		return "_"
	}
	return unsafeSubjectChars.ReplaceAllString(s, "_")
}
