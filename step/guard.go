package step

import (
	"iter"

	"github.com/hupe1980/taskmesh/core"
)

// Guard wraps seq so that it ends right after its first terminal result and
// always ends with one: a sequence that runs dry without a terminal result
// gets a synthesized ABORTED result naming action.
func Guard(action string, seq iter.Seq[core.Result]) iter.Seq[core.Result] {
	return func(yield func(core.Result) bool) {
		terminal := false
		stopped := false
		for r := range seq {
			if !yield(r) {
				stopped = true
				break
			}
			if r.IsTerminal() {
				terminal = true
				break
			}
		}
		if terminal || stopped {
			return
		}
		yield(core.Aborted(core.Failure{Action: action, Reason: core.ErrNoTerminalResult.Error()}))
	}
}
