package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/scheduler"
)

func TestVirtual_FiresInDeadlineOrder(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	var order []string

	v.Schedule(5*time.Second, func() { order = append(order, "five") })
	v.Schedule(2*time.Second, func() { order = append(order, "two") })

	v.Advance(10 * time.Second)
	require.Equal(t, []string{"two", "five"}, order)
	require.Equal(t, 0, v.Pending())
}

func TestVirtual_CancelPreventsFire(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	fired := false
	h := v.Schedule(time.Second, func() { fired = true })
	h.Cancel()
	v.Advance(2 * time.Second)
	require.False(t, fired)
}

func TestVirtual_DoesNotFireEarly(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	fired := false
	v.Schedule(10*time.Second, func() { fired = true })
	v.Advance(5 * time.Second)
	require.False(t, fired)
	require.Equal(t, 1, v.Pending())
	v.Advance(5 * time.Second)
	require.True(t, fired)
}
