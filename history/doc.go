// Package history stores the result sequences of past and running
// executions so they can be inspected after the fact.
package history
