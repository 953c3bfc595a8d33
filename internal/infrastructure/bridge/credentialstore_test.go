package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialStore(t *testing.T) {
	store, err := NewFileCredentialStore(t.TempDir())
	require.NoError(t, err)

	assert.False(t, store.Exists("tn_abc"))

	require.NoError(t, store.Touch("tn_abc"))
	assert.True(t, store.Exists("tn_abc"))
	assert.False(t, store.Exists("tn_other"))

	require.NoError(t, store.Clear("tn_abc"))
	assert.False(t, store.Exists("tn_abc"))

	// Clearing an absent marker is not an error.
	require.NoError(t, store.Clear("tn_abc"))
}
