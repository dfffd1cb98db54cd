package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_ReportsProgress(t *testing.T) {
	sim := Simulator{Steps: 4}

	var got []int
	require.NoError(t, sim.Run(context.Background(), func(p int) { got = append(got, p) }))

	assert.Equal(t, []int{25, 50, 75, 100}, got)
}

func TestSimulator_ZeroStepsStillFinishes(t *testing.T) {
	var got []int
	require.NoError(t, InstantSimulator().Run(context.Background(), func(p int) { got = append(got, p) }))
	assert.Equal(t, []int{100}, got)
}

func TestSimulator_Cancelled(t *testing.T) {
	sim := Simulator{Steps: 3, StepDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := sim.Run(ctx, func(int) { calls++ })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
