package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalManager_ContextStartsLive(t *testing.T) {
	sm := NewSignalManager()
	defer sm.Stop()

	require.NotNil(t, sm.Context())
	assert.NoError(t, sm.Context().Err())
}

func TestSignalManager_StopCancelsContext(t *testing.T) {
	sm := NewSignalManager()
	sm.Stop()

	select {
	case <-sm.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after Stop")
	}
}

func TestSignalManager_ResetRearmsContext(t *testing.T) {
	sm := NewSignalManager()
	sm.Stop()
	require.Error(t, sm.Context().Err())

	sm.Reset()
	defer sm.Stop()
	assert.NoError(t, sm.Context().Err())
}
