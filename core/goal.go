package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GoalStatus is the status of one asynchronous goal as reported by a goal
// server. The values follow the actionlib goal status vocabulary.
type GoalStatus uint8

const (
	GoalPending GoalStatus = iota
	GoalActive
	GoalPreempted
	GoalSucceeded
	GoalAborted
	GoalRejected
	GoalPreempting
	GoalRecalling
	GoalRecalled
	GoalLost
)

var goalStatusNames = [...]string{
	GoalPending:    "PENDING",
	GoalActive:     "ACTIVE",
	GoalPreempted:  "PREEMPTED",
	GoalSucceeded:  "SUCCEEDED",
	GoalAborted:    "ABORTED",
	GoalRejected:   "REJECTED",
	GoalPreempting: "PREEMPTING",
	GoalRecalling:  "RECALLING",
	GoalRecalled:   "RECALLED",
	GoalLost:       "LOST",
}

// String returns the upper-case status name.
func (s GoalStatus) String() string {
	if int(s) < len(goalStatusNames) {
		return goalStatusNames[s]
	}
	return fmt.Sprintf("GoalStatus(%d)", uint8(s))
}

// IsTerminal reports whether the goal server will not change the status
// again.
func (s GoalStatus) IsTerminal() bool {
	switch s {
	case GoalPending, GoalActive, GoalPreempting, GoalRecalling:
		return false
	default:
		return true
	}
}

// ParseGoalStatus converts a case-insensitive status name.
func ParseGoalStatus(name string) (GoalStatus, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, s := range goalStatusNames {
		if s == n {
			return GoalStatus(i), nil
		}
	}
	return GoalLost, fmt.Errorf("unknown goal status %q", name)
}

// MarshalJSON encodes the status by name.
func (s GoalStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON decodes a status name.
func (s *GoalStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseGoalStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// GoalHandle identifies one goal sent to a collaborator. It is owned by the
// action for the duration of one run.
type GoalHandle struct {
	ID           string `json:"id"`
	Collaborator string `json:"collaborator"`
}

// IsZero reports whether the handle refers to no goal.
func (h GoalHandle) IsZero() bool { return h.ID == "" }
