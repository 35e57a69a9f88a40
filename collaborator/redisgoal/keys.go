package redisgoal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "taskmesh"

// Hash fields of one goal.
const (
	fieldStatus   = "status"
	fieldGoal     = "goal"
	fieldResult   = "result"
	fieldCancel   = "cancel"
	fieldServer   = "server"
	fieldSentAt   = "sent_at"
	fieldUpdateAt = "updated_at"
)

// keys derives the Redis key layout for one goal server:
//
//	<prefix>:<server>:queue        list of pending goal ids
//	<prefix>:<server>:cancel       pub/sub channel carrying canceled goal ids
//	<prefix>:goal:<id>             hash holding status, goal, result, cancel
type keys struct {
	prefix string
	server string
}

func newKeys(prefix, server string) keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return keys{prefix: prefix, server: strings.Trim(server, "/")}
}

func (k keys) queue() string         { return fmt.Sprintf("%s:%s:queue", k.prefix, k.server) }
func (k keys) cancelChannel() string { return fmt.Sprintf("%s:%s:cancel", k.prefix, k.server) }
func (k keys) goal(id string) string { return fmt.Sprintf("%s:goal:%s", k.prefix, id) }

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseStatus(s string) (core.GoalStatus, error) {
	if s == "" {
		return core.GoalLost, fmt.Errorf("goal hash without status")
	}
	return core.ParseGoalStatus(s)
}
