package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicName(t *testing.T) {
	assert.Equal(t, "chopfinder_catalog_changed", getName("chopfinder", CatalogChanged))
}

func TestDecode(t *testing.T) {
	var got CatalogChange
	err := Decode([]byte(`{"backend":"firestore","ids":["a","b"]}`), func(c CatalogChange) error {
		got = c
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "firestore", got.Backend)
	assert.Equal(t, []string{"a", "b"}, got.IDs)

	err = Decode([]byte(`{broken`), func(CatalogChange) error { return nil })
	assert.Error(t, err)

	boom := errors.New("boom")
	err = Decode([]byte(`{}`), func(CatalogChange) error { return boom })
	assert.ErrorIs(t, err, boom)
}
