package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRunLock_AcquireRelease(t *testing.T) {
	lock := NewMemoryRunLock(time.Minute)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// second acquire while held is rejected
	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))

	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRunLock_ExpiredHolderIsEvicted(t *testing.T) {
	lock := NewMemoryRunLock(10 * time.Millisecond)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
