package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	base := time.Date(2024, 1, 7, 10, 5, 0, 0, time.UTC)

	tests := []struct {
		name     string
		spec     string
		wantNext time.Time
		wantErr  bool
	}{
		{name: "every half hour", spec: "*/30 * * * *", wantNext: time.Date(2024, 1, 7, 10, 30, 0, 0, time.UTC)},
		{name: "hourly descriptor", spec: "@hourly", wantNext: time.Date(2024, 1, 7, 11, 0, 0, 0, time.UTC)},
		{name: "every interval", spec: "@every 10m", wantNext: base.Add(10 * time.Minute)},
		{name: "seconds field rejected", spec: "0 */30 * * * *", wantErr: true},
		{name: "garbage", spec: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := ParseSchedule(tt.spec)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantNext, schedule.Next(base))
		})
	}
}

func TestScheduleLoop_RunOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs int

	err := ScheduleLoop(ctx, ScheduleConfig{
		Name:       "test",
		Spec:       "@every 1h",
		RunOnStart: true,
		Run: func(context.Context) error {
			runs++
			cancel()

			return errors.New("logged, not returned")
		},
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, runs)
}

func TestScheduleLoop_RecoversPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := ScheduleLoop(ctx, ScheduleConfig{
		Name:       "test",
		Spec:       "@every 1h",
		RunOnStart: true,
		Run: func(context.Context) error {
			defer cancel()

			panic("boom")
		},
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestScheduleLoop_InvalidSpec(t *testing.T) {
	err := ScheduleLoop(context.Background(), ScheduleConfig{Name: "test", Spec: "nope"})
	require.Error(t, err)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
