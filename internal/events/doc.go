// Package events provides the domain event types and emitter used to
// notify interested components about task lifecycle changes without
// coupling the service layer to any particular sink.
package events
