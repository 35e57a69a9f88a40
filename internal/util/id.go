// Package util holds small helpers shared across taskmesh packages that are
// not part of the public API.
package util

import "github.com/google/uuid"

// NewID generates a new unique identifier for executions and goals.
func NewID() string { return uuid.NewString() }
