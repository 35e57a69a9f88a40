package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsAccessors(t *testing.T) {
	args := Args{
		"text":     "hello",
		"duration": json.Number("1.5"),
		"count":    3,
		"ratio":    float32(0.5),
		"clouds":   []string{"a", "b"},
		"frac":     2.5,
	}

	s, err := args.String("text")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	f, err := args.Float("duration")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	n, err := args.Int("count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err = args.FloatOr("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, f)

	l, err := args.Slice("clouds")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, l)

	assert.True(t, args.Has("ratio"))
	assert.False(t, args.Has("nope"))
}

func TestArgsErrors(t *testing.T) {
	args := Args{"text": 1, "frac": 2.5, "name": "x", "nil": nil, "nan": math.NaN(), "inf": math.Inf(-1), "huge": 1e300}
	for _, call := range []func() error{
		func() error { _, err := args.String("text"); return err },
		func() error { _, err := args.String("missing"); return err },
		func() error { _, err := args.Float("name"); return err },
		func() error { _, err := args.Int("frac"); return err },
		func() error { _, err := args.Slice("name"); return err },
		func() error { _, err := args.Slice("nil"); return err },
		func() error { _, err := args.FloatOr("name", 1); return err },
		func() error { _, err := args.Float("nan"); return err },
		func() error { _, err := args.Float("inf"); return err },
		func() error { _, err := args.FloatOr("nan", 1); return err },
		func() error { _, err := args.Int("inf"); return err },
		func() error { _, err := args.Int("huge"); return err },
	} {
		err := call()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}
