// Package database is the SQLite-backed task database consulted by actions:
// named waypoint lists, semantic locations, the parts expected at each
// location and the robot's belief state.
//
// Each query is also exposed as a core.ServiceClient under the service name
// actions expect, e.g. WaypointsService.
package database
