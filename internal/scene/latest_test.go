package scene

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scene-guard-go/pkg/models"
)

func TestLatestStoreEmptyByDefault(t *testing.T) {
	s := NewLatestStore(time.Minute)

	_, found := s.Latest()
	require.False(t, found)
}

func TestLatestStoreKeepsNewestResult(t *testing.T) {
	s := NewLatestStore(time.Minute)

	s.Deliver(models.CycleResult{CycleID: "first"})
	s.Deliver(models.CycleResult{CycleID: "second"})

	result, found := s.Latest()
	require.True(t, found)
	require.Equal(t, "second", result.CycleID)
}

func TestLatestStoreExpiresResult(t *testing.T) {
	s := NewLatestStore(50 * time.Millisecond)

	s.Deliver(models.CycleResult{CycleID: "stale"})
	_, found := s.Latest()
	require.True(t, found)

	time.Sleep(100 * time.Millisecond)

	_, found = s.Latest()
	require.False(t, found)
}
