package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahidn4p/segdl/internal/config"
)

func TestAcquire_SecondCallFailsWhileFirstHeld(t *testing.T) {
	t.Setenv("SEGDL_HOME", t.TempDir())

	first, ok, err := Acquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer first.Release()

	second, ok, err := Acquire()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, second)
}

func TestAcquire_CanReacquireAfterRelease(t *testing.T) {
	t.Setenv("SEGDL_HOME", t.TempDir())

	first, ok, err := Acquire()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, first.Release())

	second, ok, err := Acquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer second.Release()

	lockPath := filepath.Join(config.GetSurgeDir(), "segdl.lock")
	_, err = os.Stat(lockPath)
	assert.NoError(t, err)
}
