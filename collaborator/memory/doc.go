// Package memory provides in-process collaborators: a scripted goal server
// and a function-backed service. They stand in for real action servers in
// tests, examples and dry runs.
package memory
