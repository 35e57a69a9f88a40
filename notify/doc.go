// Package notify provides sinks for the notifications actions emit about
// their collaborators: fan-out, logging, Prometheus counters and an
// in-memory recorder.
package notify
