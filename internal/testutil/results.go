package testutil

import (
	"iter"

	"github.com/hupe1980/taskmesh/core"
)

// Collect drains seq.
func Collect(seq iter.Seq[core.Result]) []core.Result {
	var out []core.Result
	for r := range seq {
		out = append(out, r)
	}
	return out
}

// Statuses projects results onto their statuses.
func Statuses(rs []core.Result) []core.Status {
	out := make([]core.Status, len(rs))
	for i, r := range rs {
		out[i] = r.Status()
	}
	return out
}

// Running returns n RUNNING statuses followed by last.
func Running(n int, last core.Status) []core.Status {
	out := make([]core.Status, 0, n+1)
	for range n {
		out = append(out, core.StatusRunning)
	}
	return append(out, last)
}
