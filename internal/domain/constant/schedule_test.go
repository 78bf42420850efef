package constant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithinBounds(t *testing.T) {
	now := time.Unix(1000, 0)

	type testCase struct {
		postAt int64
		expect bool
	}

	var cases = []testCase{
		{postAt: 999, expect: false},
		{postAt: 1000, expect: false},
		{postAt: 1029, expect: false},
		{postAt: 1030, expect: true},
		{postAt: 2000, expect: true},
		{postAt: 1000 + 120*24*3600, expect: true},
		{postAt: 1000 + 120*24*3600 + 1, expect: false},
	}

	for _, c := range cases {
		assert.Equal(t, c.expect, WithinBounds(c.postAt, now), "postAt %d", c.postAt)
	}
}

func TestStateAt(t *testing.T) {
	now := time.Unix(1000, 0)

	assert.Equal(t, StateExpired, StateAt(999, now))
	assert.Equal(t, StateExpired, StateAt(1000, now))
	assert.Equal(t, StatePending, StateAt(1001, now))
}
