package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharven/refract/pkg/adapters/memory"
	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_SaveIsolatesCaller(t *testing.T) {
	// Mutating the state after Save must not affect the stored copy.
	store := memory.NewStore()
	ctx := context.Background()

	state := domain.NewExamState("iso", "6.1")
	state.Phoropter.OD.Sphere = -1.00
	require.NoError(t, store.Save(ctx, "iso", state))

	state.Phoropter.OD.Sphere = -5.00
	state.Verdicts[domain.VerdictClear] = 42

	loaded, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, -1.00, loaded.Phoropter.OD.Sphere)
	assert.Equal(t, 0, loaded.Verdicts[domain.VerdictClear])
}
