// Package mocks provides hand-written test doubles for the store, cache
// and service interfaces. Each mock exposes Fn fields to override behavior
// per test and records calls for verification.
package mocks
