package memory

import (
	"context"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// Service is an in-process request/response collaborator backed by a
// handler function. It records every request.
type Service[Req, Resp any] struct {
	name    string
	handler func(ctx context.Context, req Req) (Resp, error)

	mu             sync.Mutex
	requests       []Req
	unreachableFor int
	connects       int
}

var _ core.ServiceClient[string, string] = (*Service[string, string])(nil)

// NewService creates a service named name.
func NewService[Req, Resp any](name string, handler func(ctx context.Context, req Req) (Resp, error)) *Service[Req, Resp] {
	return &Service[Req, Resp]{name: name, handler: handler}
}

// Unreachable makes the first n Connect calls fail; a negative n makes every
// call fail.
func (s *Service[Req, Resp]) Unreachable(n int) *Service[Req, Resp] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreachableFor = n
	return s
}

// Name returns the collaborator name.
func (s *Service[Req, Resp]) Name() string { return s.name }

// Connect fails while the service is configured as unreachable.
func (s *Service[Req, Resp]) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.unreachableFor < 0 || s.connects <= s.unreachableFor {
		return ErrNotReachable
	}
	return nil
}

// Call records req and invokes the handler.
func (s *Service[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.handler(ctx, req)
}

// Requests returns the recorded requests.
func (s *Service[Req, Resp]) Requests() []Req {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Req(nil), s.requests...)
}
