package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler("every so often", &countingRescanner{}, nil)
	assert.ErrorContains(t, err, "failed to schedule rescans")
}

func TestScheduler_RunsRescans(t *testing.T) {
	rescanner := &countingRescanner{}
	scheduler, err := NewScheduler("@every 1s", rescanner, nil)
	require.NoError(t, err)

	scheduler.Start()
	assert.Eventually(t, func() bool { return rescanner.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(ctx))
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	scheduler, err := NewScheduler("@hourly", &countingRescanner{}, nil)
	require.NoError(t, err)

	require.NoError(t, scheduler.Stop(context.Background()))
}
