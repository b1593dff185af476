package mcpserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTaskMetadataAbsent(t *testing.T) {
	meta, augmented, err := decodeTaskMetadata(nil)
	require.NoError(t, err)
	assert.False(t, augmented)
	assert.Nil(t, meta)
}

func TestDecodeTaskMetadataPresent(t *testing.T) {
	meta, augmented, err := decodeTaskMetadata([]byte(`{"task":{"ttl":5000}}`))
	require.NoError(t, err)
	require.True(t, augmented)
	require.NotNil(t, meta)
	ttl := meta.ttlDuration()
	require.NotNil(t, ttl)
	assert.Equal(t, 5*time.Second, *ttl)
}

func TestDecodeTaskMetadataWithoutTask(t *testing.T) {
	meta, augmented, err := decodeTaskMetadata([]byte(`{"name":"add"}`))
	require.NoError(t, err)
	assert.False(t, augmented)
	assert.Nil(t, meta)
}
