package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPoolReuse(t *testing.T) {
	require := require.New(t)

	t1 := GetTimer(time.Millisecond)
	<-t1.C
	PutTimer(t1)

	t2 := GetTimer(time.Millisecond)
	select {
	case <-t2.C:
	case <-time.After(time.Second):
		t.Fatal("pooled timer did not fire after reset")
	}
	PutTimer(t2)

	require.NotNil(t2)
}

func TestSleep(t *testing.T) {
	require := require.New(t)

	start := time.Now()
	require.NoError(Sleep(context.Background(), 10*time.Millisecond))
	require.GreaterOrEqual(time.Since(start), 10*time.Millisecond)
}

func TestSleepCancelled(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Minute)
	require.ErrorIs(err, context.Canceled)
}
