package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCoordinator_RunsInOrder(t *testing.T) {
	coord := NewCoordinator(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, coord.Post(func() { order = append(order, i) }))
	}

	go func() { _ = coord.Run(ctx) }()

	var got []int
	require.NoError(t, coord.Do(context.Background(), func() { got = append(got, order...) }))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestCoordinator_SurvivesPanickingCallback(t *testing.T) {
	coord := NewCoordinator(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = coord.Run(ctx) }()

	coord.Post(func() { panic("bad callback") })

	ran := false
	require.NoError(t, coord.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestCoordinator_DoAfterStop(t *testing.T) {
	coord := NewCoordinator(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = coord.Run(ctx)
	}()
	cancel()
	<-stopped

	assert.ErrorIs(t, coord.Do(context.Background(), func() {}), ErrCoordinatorStopped)
	assert.False(t, coord.Post(func() {}))
}

func TestCoordinator_StopRunsQueuedCallbacks(t *testing.T) {
	coord := NewCoordinator(zap.NewNop())

	ran := 0
	for i := 0; i < 10; i++ {
		require.True(t, coord.Post(func() { ran++ }))
	}

	// Контекст уже отменен: Run может сразу уйти на остановку
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, coord.Run(ctx))

	assert.Equal(t, 10, ran)
	assert.False(t, coord.Post(func() { ran++ }))
	assert.Equal(t, 10, ran)
}
