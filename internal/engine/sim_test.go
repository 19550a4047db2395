package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSimulatedEngineRoundRobin(t *testing.T) {
	sim := NewSimulatedEngine()
	sim.InitDelay = 0
	sim.InferDelay = 0

	require.NoError(t, sim.Initialize(context.Background()))

	seen := make([]string, 0, len(sim.Responses)+1)
	for i := 0; i <= len(sim.Responses); i++ {
		text, err := sim.Infer(context.Background(), nil, "")
		require.NoError(t, err)
		seen = append(seen, text)
	}

	require.Equal(t, sim.Responses, seen[:len(sim.Responses)])
	// После полного круга ответы повторяются
	require.Equal(t, sim.Responses[0], seen[len(sim.Responses)])
}

func TestSimulatedEngineHonorsContext(t *testing.T) {
	sim := NewSimulatedEngine()
	sim.InferDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sim.Infer(ctx, nil, "")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
