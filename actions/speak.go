package actions

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/step"
)

// SpeechGoal asks the sound server to say Text.
type SpeechGoal struct {
	Text string `json:"text"`
}

// Speak says a line of text. Args: text (non-empty string).
type Speak struct {
	*step.BaseStep
	server         core.GoalClient
	connectTimeout time.Duration
}

var _ core.Action = (*Speak)(nil)

// NewSpeak creates the action.
func NewSpeak(deps Deps, cfg Config) *Speak {
	return &Speak{BaseStep: newBase(deps, cfg), server: deps.Speech, connectTimeout: cfg.ConnectTimeout}
}

// Init waits for the sound server.
func (a *Speak) Init(ctx context.Context, name string) error {
	return a.InitOnce(ctx, name, func(ctx context.Context) error {
		return connectAll(ctx, a.Logger(), a.connectTimeout, a.server)
	})
}

// Run validates the text and returns the speech sequence.
func (a *Speak) Run(ctx context.Context, args core.Args) (iter.Seq[core.Result], error) {
	text, err := args.String("text")
	if err != nil {
		return nil, a.ArgError(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, a.InvalidArg("text", text, "nothing to say")
	}
	if err := a.BeginRun(); err != nil {
		return nil, err
	}
	goal := SpeechGoal{Text: text}
	return func(yield func(core.Result) bool) {
		out, ok := a.TrackGoal(ctx, a.server, goal, yield)
		if !ok {
			return
		}
		if out.Succeeded() {
			yield(core.Succeeded(nil))
			return
		}
		yield(a.FinishGoal(a.server.Name(), goal, out, nil))
	}, nil
}
