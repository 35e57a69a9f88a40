package redisgoal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/taskmesh/core"
)

// updateScript moves a goal to a new status unless it is already terminal.
// KEYS[1] = goal hash
// ARGV[1] = new status
// ARGV[2] = timestamp
// ARGV[3] = encoded result ("" keeps the stored one)
// ARGV[4..] = terminal status names
// Returns -1 for an unknown goal, 0 when the goal was already terminal, 1 on
// update.
var updateScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "status")
if not cur then
    return -1
end
for i = 4, #ARGV do
    if cur == ARGV[i] then
        return 0
    end
end
redis.call("HSET", KEYS[1], "status", ARGV[1], "updated_at", ARGV[2])
if ARGV[3] ~= "" then
    redis.call("HSET", KEYS[1], "result", ARGV[3])
end
return 1
`)

// ErrGoalFinished is returned when updating a goal that is already terminal.
var ErrGoalFinished = errors.New("goal already finished")

// Goal is one goal taken from the queue.
type Goal struct {
	ID      string
	Payload any
}

// Server is the worker side of the transport: it takes goals from the queue
// and reports their progress.
type Server struct {
	rdb  redis.UniversalClient
	name string
	keys keys
	ttl  time.Duration
}

// NewServer creates the worker side for the goal server called name.
func NewServer(rdb redis.UniversalClient, name string, optFns ...func(o *Options)) *Server {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{rdb: rdb, name: name, keys: newKeys(opts.Prefix, name), ttl: opts.TTL}
}

// Name returns the goal server name.
func (s *Server) Name() string { return s.name }

// Next waits up to timeout for a queued goal. ok is false on timeout.
func (s *Server) Next(ctx context.Context, timeout time.Duration) (Goal, bool, error) {
	res, err := s.rdb.BLPop(ctx, timeout, s.keys.queue()).Result()
	if errors.Is(err, redis.Nil) {
		return Goal{}, false, nil
	}
	if err != nil {
		return Goal{}, false, fmt.Errorf("%s: take goal: %w", s.name, err)
	}
	id := res[1]
	raw, err := s.rdb.HGet(ctx, s.keys.goal(id), fieldGoal).Result()
	if err != nil {
		return Goal{}, false, fmt.Errorf("%s: load goal %s: %w", s.name, id, err)
	}
	payload, err := decode(raw)
	if err != nil {
		return Goal{}, false, fmt.Errorf("%s: decode goal %s: %w", s.name, id, err)
	}
	return Goal{ID: id, Payload: payload}, true, nil
}

// Update reports a non-terminal status such as ACTIVE.
func (s *Server) Update(ctx context.Context, id string, status core.GoalStatus) error {
	return s.update(ctx, id, status, "")
}

// Finish stores the result and a terminal status.
func (s *Server) Finish(ctx context.Context, id string, status core.GoalStatus, result any) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%s: finish goal %s with non-terminal status %s", s.name, id, status)
	}
	payload, err := encode(result)
	if err != nil {
		return fmt.Errorf("%s: encode result: %w", s.name, err)
	}
	if err := s.update(ctx, id, status, payload); err != nil {
		return err
	}
	if s.ttl > 0 {
		return s.rdb.Expire(ctx, s.keys.goal(id), s.ttl).Err()
	}
	return nil
}

// CancelRequested reports whether a client asked to cancel the goal.
func (s *Server) CancelRequested(ctx context.Context, id string) (bool, error) {
	v, err := s.rdb.HGet(ctx, s.keys.goal(id), fieldCancel).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: read cancel flag: %w", s.name, err)
	}
	return v == "1", nil
}

// Cancellations subscribes to cancel announcements. The returned channel
// carries goal ids until close is called or ctx ends.
func (s *Server) Cancellations(ctx context.Context) (<-chan string, func() error) {
	sub := s.rdb.Subscribe(ctx, s.keys.cancelChannel())
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close
}

func (s *Server) update(ctx context.Context, id string, status core.GoalStatus, result string) error {
	args := []any{status.String(), time.Now().UTC().Format(time.RFC3339Nano), result}
	args = append(args, terminalNames()...)
	n, err := updateScript.Run(ctx, s.rdb, []string{s.keys.goal(id)}, args...).Int()
	if err != nil {
		return fmt.Errorf("%s: update goal %s: %w", s.name, id, err)
	}
	switch n {
	case -1:
		return fmt.Errorf("%s: %w: %s", s.name, core.ErrUnknownGoal, id)
	case 0:
		return fmt.Errorf("%s: %w: %s", s.name, ErrGoalFinished, id)
	}
	return nil
}

func terminalNames() []any {
	var out []any
	for st := core.GoalPending; st <= core.GoalLost; st++ {
		if st.IsTerminal() {
			out = append(out, st.String())
		}
	}
	return out
}
