// Package redisgoal transports goals between actions and out-of-process goal
// servers over Redis.
//
// Client implements core.GoalClient for the action side; Server is the
// worker side that takes queued goals, reports progress and stores results.
// Status updates go through a Lua script so a goal never leaves a terminal
// status.
package redisgoal
