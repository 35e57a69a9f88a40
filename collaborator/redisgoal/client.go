package redisgoal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
)

// Options configures a Client or Server.
type Options struct {
	// Prefix namespaces keys; DefaultPrefix when empty.
	Prefix string
	// TTL expires finished goal hashes. Zero keeps them.
	TTL time.Duration
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Client is a goal-based collaborator whose goals are transported over
// Redis. Each goal is a hash; pending goal ids are pushed onto the server's
// queue list and cancellations are published on the server's cancel
// channel. A Server (or any process honoring the same layout) works the
// queue.
type Client struct {
	rdb    redis.UniversalClient
	name   string
	keys   keys
	ttl    time.Duration
	logger logging.Logger
}

var _ core.GoalClient = (*Client)(nil)

// NewClient creates a client for the goal server called name.
func NewClient(rdb redis.UniversalClient, name string, optFns ...func(o *Options)) *Client {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		rdb:    rdb,
		name:   name,
		keys:   newKeys(opts.Prefix, name),
		ttl:    opts.TTL,
		logger: logging.OrNoOp(opts.Logger),
	}
}

// Dial opens a Redis connection with the given address, password and db.
func Dial(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Name returns the goal server name.
func (c *Client) Name() string { return c.name }

// Connect pings Redis.
func (c *Client) Connect(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SendGoal stores the goal as PENDING and queues it.
func (c *Client) SendGoal(ctx context.Context, goal any) (core.GoalHandle, error) {
	payload, err := encode(goal)
	if err != nil {
		return core.GoalHandle{}, fmt.Errorf("%s: encode goal: %w", c.name, err)
	}
	h := core.GoalHandle{ID: util.NewID(), Collaborator: c.name}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, c.keys.goal(h.ID),
			fieldStatus, core.GoalPending.String(),
			fieldGoal, payload,
			fieldServer, c.name,
			fieldSentAt, now,
			fieldUpdateAt, now,
		)
		p.RPush(ctx, c.keys.queue(), h.ID)
		return nil
	})
	if err != nil {
		return core.GoalHandle{}, fmt.Errorf("%s: send goal: %w", c.name, err)
	}
	return h, nil
}

// Poll reads the goal's status.
func (c *Client) Poll(ctx context.Context, h core.GoalHandle) (core.GoalStatus, error) {
	s, err := c.rdb.HGet(ctx, c.keys.goal(h.ID), fieldStatus).Result()
	if errors.Is(err, redis.Nil) {
		return core.GoalLost, fmt.Errorf("%s: %w: %s", c.name, core.ErrUnknownGoal, h.ID)
	}
	if err != nil {
		return core.GoalLost, fmt.Errorf("%s: poll: %w", c.name, err)
	}
	return parseStatus(s)
}

// Result reads and decodes the goal's result. It returns nil until the
// server stored one.
func (c *Client) Result(ctx context.Context, h core.GoalHandle) (any, error) {
	s, err := c.rdb.HGet(ctx, c.keys.goal(h.ID), fieldResult).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: result: %w", c.name, err)
	}
	if c.ttl > 0 {
		// The result is already read; a failed refresh only leaves the old expiry.
		if err := c.rdb.Expire(ctx, c.keys.goal(h.ID), c.ttl).Err(); err != nil {
			c.logger.Warn("redisgoal.result.expire_failed", "collaborator", c.name, "goal_id", h.ID, "error", err.Error())
		}
	}
	return decode(s)
}

// Cancel flags the goal and announces it on the cancel channel.
func (c *Client) Cancel(ctx context.Context, h core.GoalHandle) error {
	n, err := c.rdb.Exists(ctx, c.keys.goal(h.ID)).Result()
	if err != nil {
		return fmt.Errorf("%s: cancel: %w", c.name, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w: %s", c.name, core.ErrUnknownGoal, h.ID)
	}
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, c.keys.goal(h.ID), fieldCancel, "1")
		p.Publish(ctx, c.keys.cancelChannel(), h.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: cancel: %w", c.name, err)
	}
	return nil
}
