// Package store defines the persistence interfaces and shared errors used
// by the service layer. Concrete implementations live under
// internal/platform; services depend only on these interfaces.
package store
