// Package events defines event types and publisher interfaces for service change events.
package events

// ServiceChangedEvent is emitted when a procedure is registered on a service.
// Clients holding a cached service description should drop it.
type ServiceChangedEvent struct {
	Service   string `json:"service"`
	ServiceID string `json:"serviceId"`
	Procedure string `json:"procedure"`
	Action    string `json:"action"`
	Revision  int64  `json:"revision"`
	Timestamp string `json:"timestamp"`
}

// ActionRegistered marks a procedure registration or replacement.
const ActionRegistered = "registered"
