package randx

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := TempID()
		assert.False(t, seen[id], "duplicate temp id %s", id)
		seen[id] = true
	}
}

func TestTempIDShape(t *testing.T) {
	id := TempID()
	require.True(t, strings.HasPrefix(id, TempIDPrefix))

	_, err := uuid.Parse(strings.TrimPrefix(id, TempIDPrefix))
	assert.NoError(t, err)
}
