package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateAdmitsFirstFrameWhenReady(t *testing.T) {
	g := New(2*time.Second, func() bool { return true })
	require.True(t, g.Admit(time.Now()))
}

func TestGateRejectsWhenNotReady(t *testing.T) {
	g := New(2*time.Second, func() bool { return false })

	now := time.Now()
	require.False(t, g.Admit(now))
	// Прошедшее время не помогает, если движок не готов
	require.False(t, g.Admit(now.Add(time.Hour)))
}

func TestGateThrottleMonotonicity(t *testing.T) {
	interval := 2 * time.Second
	g := New(interval, func() bool { return true })

	base := time.Now()
	require.True(t, g.Admit(base))
	g.RecordAdmitted(base)

	// Любая метка внутри интервала после допуска отклоняется
	for _, offset := range []time.Duration{0, time.Millisecond, time.Second, interval - time.Millisecond} {
		require.False(t, g.Admit(base.Add(offset)), "смещение %v", offset)
	}

	// Ровно на границе интервала кадр снова допускается
	require.True(t, g.Admit(base.Add(interval)))
	require.True(t, g.Admit(base.Add(interval+time.Second)))
}

func TestGateAdmitDoesNotMutateState(t *testing.T) {
	g := New(2*time.Second, func() bool { return true })

	now := time.Now()
	// Повторные Admit без RecordAdmitted не запирают шлюз
	require.True(t, g.Admit(now))
	require.True(t, g.Admit(now))
	require.True(t, g.Admit(now))
}

func TestGateNilReadyFuncAdmits(t *testing.T) {
	g := New(time.Second, nil)
	require.True(t, g.Admit(time.Now()))
}
