package database

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the initial content of a task database, usually loaded from YAML:
//
//	waypoints:
//	  table:
//	    - {frame: map, x: 1.0, y: 2.0, theta: 1.57}
//	parts:
//	  table: [BOLT, SMALL_GEAR]
//	beliefs:
//	  robot_at_table: 1
type Seed struct {
	Waypoints map[string][]Waypoint `yaml:"waypoints"`
	Locations []string              `yaml:"locations"`
	Parts     map[string][]string   `yaml:"parts"`
	Beliefs   map[string]float64    `yaml:"beliefs"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &seed, nil
}

// Apply writes the seed into the store. Existing entries with the same keys
// are replaced.
func (s *Store) Apply(ctx context.Context, seed *Seed) error {
	for loc, wps := range seed.Waypoints {
		if err := s.PutWaypoints(ctx, loc, wps); err != nil {
			return err
		}
	}
	for _, loc := range seed.Locations {
		if err := s.PutSemanticLocation(ctx, loc); err != nil {
			return err
		}
	}
	for loc, parts := range seed.Parts {
		if err := s.PutPartsAtLocation(ctx, loc, parts); err != nil {
			return err
		}
	}
	for k, v := range seed.Beliefs {
		if err := s.SetBelief(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
