package api_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharven/refract/api"
)

func TestDocument_Valid(t *testing.T) {
	doc, err := api.Document(context.Background())
	require.NoError(t, err, "embedded spec must parse and validate")

	assert.Equal(t, "Refract Exam API", doc.Info.Title)
	assert.NotEmpty(t, doc.Info.Version)

	// The operations the server wires must exist in the contract.
	for _, path := range []string{
		"/sessions",
		"/sessions/{sessionId}/turns",
		"/sessions/{sessionId}/escalate",
		"/sessions/{sessionId}/report",
		"/events",
		"/health",
		"/info",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "missing path %s", path)
	}
}

func TestSpec_ReturnsCopy(t *testing.T) {
	a := api.Spec()
	b := api.Spec()
	require.NotEmpty(t, a)

	a[0] = '#'
	assert.NotEqual(t, a[0], b[0], "mutating one copy must not affect another")
}
