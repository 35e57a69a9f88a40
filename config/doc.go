// Package config loads the executor configuration from YAML and
// TASKMESH_-prefixed environment variables.
package config
