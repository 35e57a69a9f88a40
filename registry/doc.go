// Package registry is the process-wide collection of named action
// instances. It instantiates each action once, checks it, exposes it by name
// and fans out the one-time Init call in registration order.
package registry
