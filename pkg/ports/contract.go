package ports

import (
	"context"
	"testing"
	"time"

	"github.com/kharven/refract/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract exercises a StateStore against the behavior every
// backend must share. Each adapter's test suite calls it with its store.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "store-contract-" + time.Now().Format("20060102150405")

	t.Run("SaveLoad", func(t *testing.T) {
		state := domain.NewExamState(sessionID, "6.1")
		state.Phoropter.OD.Sphere = -1.25
		state.Phoropter.OS.Cylinder = -0.75
		state.Phoropter.OS.Axis = 90
		state.Phoropter.Occlusion = domain.OcclusionOS
		state.Phoropter.History = append(state.Phoropter.History, domain.AdjustmentRecord{
			Timestamp: time.Now().UTC(),
			Eye:       domain.EyeOD,
			Parameter: domain.ParameterSphere,
			Magnitude: 0.25,
			Result:    -1.25,
			Step:      "6.1",
		})
		state.Verdicts[domain.VerdictClear] = 3
		state.Verdicts[domain.VerdictAmbiguous] = 1
		state.TurnCount = 4
		state.Safety.ElapsedSeconds = 312.5
		state.Safety.RedFlagCount = 1

		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, state.CurrentStep, loaded.CurrentStep)
		assert.Equal(t, state.Status, loaded.Status)
		assert.Equal(t, -1.25, loaded.Phoropter.OD.Sphere)
		assert.Equal(t, -0.75, loaded.Phoropter.OS.Cylinder)
		assert.Equal(t, 90, loaded.Phoropter.OS.Axis)
		assert.Equal(t, domain.OcclusionOS, loaded.Phoropter.Occlusion)
		require.Len(t, loaded.Phoropter.History, 1)
		assert.Equal(t, domain.EyeOD, loaded.Phoropter.History[0].Eye)
		assert.Equal(t, 0.25, loaded.Phoropter.History[0].Magnitude)
		assert.Equal(t, 3, loaded.Verdicts[domain.VerdictClear])
		assert.Equal(t, 1, loaded.Verdicts[domain.VerdictAmbiguous])
		assert.Equal(t, 312.5, loaded.Safety.ElapsedSeconds)
		assert.Equal(t, 1, loaded.Safety.RedFlagCount)
	})

	t.Run("LoadReturnsCopy", func(t *testing.T) {
		// A mutation on a loaded state must not leak back into the store.
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Phoropter.OD.Sphere = 9.75
		loaded.Verdicts[domain.VerdictClear] = 99

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, -1.25, again.Phoropter.OD.Sphere)
		assert.Equal(t, 3, again.Verdicts[domain.VerdictClear])
	})

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewExamState(sessionID, "0.1")))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "deleted session should read as not found")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewExamState(id1, "0.1"))
		_ = store.Save(ctx, id2, domain.NewExamState(id2, "0.1"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
