package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestJanitor_SweepPrunes(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)
	defer store.Close()

	start := time.Now()
	for i := 0; i < 6; i++ {
		require.NoError(t, store.RecordScan(newRecord(i, start.Add(time.Duration(i)*time.Millisecond))))
	}

	j := NewJanitor(store, 2, time.Hour)
	defer j.Close()

	j.Sweep()

	count, err := store.CountScans()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestJanitor_KeepZeroKeepsEverything(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordScan(newRecord(i, time.Now())))
	}

	j := NewJanitor(store, 0, time.Hour)
	defer j.Close()
	j.Sweep()

	count, err := store.CountScans()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestJanitor_RunsOnTicker(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordScan(newRecord(i, time.Now().Add(time.Duration(i)))))
	}

	// badger's own goroutines predate this point; only the janitor's must exit
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	j := NewJanitor(store, 1, 10*time.Millisecond)
	defer j.Close()

	assert.Eventually(t, func() bool {
		count, err := store.CountScans()
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond, "expected history pruned to one record")
}
