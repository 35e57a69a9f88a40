package actions

import (
	"fmt"
	"math"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/database"
)

const (
	locationsPrefix = "locations."
	waypointsPrefix = "waypoints."
)

// Quaternion is an orientation; only yaw is ever set.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// PoseGoal is the goal sent to a base navigation server for one waypoint.
type PoseGoal struct {
	Frame       string     `json:"frame"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Orientation Quaternion `json:"orientation"`
}

// poseGoal converts a planar waypoint into a goal, with theta as yaw.
func poseGoal(wp database.Waypoint) PoseGoal {
	return PoseGoal{
		Frame: wp.Frame,
		X:     wp.X,
		Y:     wp.Y,
		Orientation: Quaternion{
			Z: math.Sin(wp.Theta / 2),
			W: math.Cos(wp.Theta / 2),
		},
	}
}

// target is a parsed location argument: either a named location still to be
// looked up or the waypoints themselves.
type target struct {
	location  string
	waypoints []database.Waypoint
}

// parseTarget accepts "locations.<name>", "waypoints.<frame>", a single
// waypoint map or a list of waypoint maps. Every given coordinate must be
// finite.
func parseTarget(v any) (target, error) {
	t, err := parseTargetValue(v)
	if err != nil {
		return target{}, err
	}
	for i, wp := range t.waypoints {
		if err := checkWaypoint(wp); err != nil {
			return target{}, fmt.Errorf("waypoint %d: %w", i, err)
		}
	}
	return t, nil
}

func checkWaypoint(wp database.Waypoint) error {
	if wp.Frame == "" {
		return fmt.Errorf("frame must not be empty")
	}
	for _, c := range []struct {
		name string
		v    float64
	}{{"x", wp.X}, {"y", wp.Y}, {"theta", wp.Theta}} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%s must be finite, got %v", c.name, c.v)
		}
	}
	return nil
}

func parseTargetValue(v any) (target, error) {
	switch t := v.(type) {
	case string:
		switch {
		case strings.HasPrefix(t, locationsPrefix) && len(t) > len(locationsPrefix):
			return target{location: strings.TrimPrefix(t, locationsPrefix)}, nil
		case strings.HasPrefix(t, waypointsPrefix) && len(t) > len(waypointsPrefix):
			return target{waypoints: []database.Waypoint{{Frame: strings.TrimPrefix(t, waypointsPrefix)}}}, nil
		}
		return target{}, fmt.Errorf("expected %q or %q prefix", locationsPrefix, waypointsPrefix)
	case map[string]any:
		wp, err := parseWaypoint(t)
		if err != nil {
			return target{}, err
		}
		return target{waypoints: []database.Waypoint{wp}}, nil
	case database.Waypoint:
		return target{waypoints: []database.Waypoint{t}}, nil
	case []database.Waypoint:
		if len(t) == 0 {
			return target{}, fmt.Errorf("empty waypoint list")
		}
		return target{waypoints: append([]database.Waypoint(nil), t...)}, nil
	case []any:
		if len(t) == 0 {
			return target{}, fmt.Errorf("empty waypoint list")
		}
		wps := make([]database.Waypoint, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return target{}, fmt.Errorf("waypoint %d: expected a map, got %T", i, item)
			}
			wp, err := parseWaypoint(m)
			if err != nil {
				return target{}, fmt.Errorf("waypoint %d: %w", i, err)
			}
			wps = append(wps, wp)
		}
		return target{waypoints: wps}, nil
	}
	return target{}, fmt.Errorf("unsupported location of type %T", v)
}

func parseWaypoint(m map[string]any) (database.Waypoint, error) {
	args := core.Args(m)
	var wp database.Waypoint
	var err error
	if wp.Frame, err = args.String("frame"); err != nil {
		return wp, err
	}
	if wp.X, err = args.FloatOr("x", 0); err != nil {
		return wp, err
	}
	if wp.Y, err = args.FloatOr("y", 0); err != nil {
		return wp, err
	}
	if wp.Theta, err = args.FloatOr("theta", 0); err != nil {
		return wp, err
	}
	return wp, nil
}
