package database

import (
	"context"

	"github.com/hupe1980/taskmesh/core"
)

// Service names under which the store's queries are exposed to actions.
const (
	WaypointsService         = "/database/waypoints"
	SemanticLocationsService = "/database/semantic_locations"
	PartsAtLocationService   = "/database/parts_at_location"
	BeliefsService           = "/beliefs/get_beliefs"
)

// service exposes one store query as a core.ServiceClient. Connect pings the
// database.
type service[Req, Resp any] struct {
	name  string
	store *Store
	fn    func(ctx context.Context, req Req) (Resp, error)
}

func (s *service[Req, Resp]) Name() string { return s.name }

func (s *service[Req, Resp]) Connect(ctx context.Context) error { return s.store.Ping(ctx) }

func (s *service[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) { return s.fn(ctx, req) }

// WaypointsClient looks up the waypoints of a named location.
func (s *Store) WaypointsClient() core.ServiceClient[string, []Waypoint] {
	return &service[string, []Waypoint]{name: WaypointsService, store: s, fn: s.Waypoints}
}

// SemanticLocationsClient lists the semantic locations.
func (s *Store) SemanticLocationsClient() core.ServiceClient[struct{}, []string] {
	return &service[struct{}, []string]{
		name:  SemanticLocationsService,
		store: s,
		fn: func(ctx context.Context, _ struct{}) ([]string, error) {
			return s.SemanticLocations(ctx)
		},
	}
}

// PartsAtLocationClient lists the parts expected at a location.
func (s *Store) PartsAtLocationClient() core.ServiceClient[string, []string] {
	return &service[string, []string]{name: PartsAtLocationService, store: s, fn: s.PartsAtLocation}
}

// BeliefsClient returns the current belief state.
func (s *Store) BeliefsClient() core.ServiceClient[struct{}, map[string]float64] {
	return &service[struct{}, map[string]float64]{
		name:  BeliefsService,
		store: s,
		fn: func(ctx context.Context, _ struct{}) (map[string]float64, error) {
			return s.Beliefs(ctx)
		},
	}
}
