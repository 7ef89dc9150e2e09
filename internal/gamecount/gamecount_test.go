package gamecount_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/gamecount"
)

type fakeSub struct {
	calls []int64
}

func (f *fakeSub) BroadcastGameCount(n int64) { f.calls = append(f.calls, n) }

func TestIncrementDoesNotBroadcast(t *testing.T) {
	sub := &fakeSub{}
	c := gamecount.New(sub)
	c.Increment()
	c.Increment()
	require.Equal(t, int64(2), c.Load())
	require.Empty(t, sub.calls)
}

func TestDecrementBroadcasts(t *testing.T) {
	sub := &fakeSub{}
	c := gamecount.New(sub)
	c.Increment()
	c.Decrement()
	require.Equal(t, int64(0), c.Load())
	require.Equal(t, []int64{0}, sub.calls)
}
