// Package testutil contains helpers used across tests to reduce boilerplate
// when driving result sequences and constructing scripted actions. They are
// not intended for production usage.
package testutil
