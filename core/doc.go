// Package core provides the foundational contracts and value types used by
// taskmesh. It defines the core abstractions for:
//
//   - Actions (named, self-contained units of robot behavior with an
//     Init / Run / Stop lifecycle)
//   - Results (the uniform RUNNING / SUCCEEDED / PREEMPTED / ABORTED record a
//     running action yields)
//   - Collaborators (external goal servers and request/response services an
//     action delegates work to)
//   - Notifications (an observational side channel describing goals sent,
//     results received, services called and goals canceled)
//
// The package intentionally keeps implementation concerns (registry, runner,
// concrete actions, transports) out of scope, exposing small interfaces so
// that actions and collaborators can be swapped in tests or production.
package core
