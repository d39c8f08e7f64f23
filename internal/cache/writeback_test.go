package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/internal/metrics"
	"github.com/wonny/momentum/pkg/logger"
)

func TestWriteBackPersists(t *testing.T) {
	store := newFakeStore()
	m := metrics.New()
	wb := NewWriteBack(store, WriteBackConfig{QueueSize: 8, Workers: 2}, logger.NewNop(), m)

	assert.True(t, wb.Enqueue(score("AAPL", 70)))
	assert.True(t, wb.Enqueue(score("MSFT", 40)))
	require.NoError(t, wb.Close(context.Background()))

	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, store.writtenTickers())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WriteBack.WithLabelValues(metrics.WriteWritten)))
}

func TestWriteBackSkipsInsufficientData(t *testing.T) {
	store := newFakeStore()
	wb := NewWriteBack(store, WriteBackConfig{}, logger.NewNop(), nil)

	assert.False(t, wb.Enqueue(contracts.InsufficientScore("NEW", 5, time.Now())))
	require.NoError(t, wb.Close(context.Background()))
	assert.Empty(t, store.writtenTickers())
}

func TestWriteBackFullQueueDropsAndCounts(t *testing.T) {
	store := newFakeStore()
	store.started = make(chan struct{})
	store.release = make(chan struct{})
	m := metrics.New()

	wb := NewWriteBack(store, WriteBackConfig{QueueSize: 1, Workers: 1, Timeout: 5 * time.Second}, logger.NewNop(), m)

	require.True(t, wb.Enqueue(score("A", 50)))
	<-store.started // the single writer is busy with A

	assert.True(t, wb.Enqueue(score("B", 50)), "fills the queue")
	assert.False(t, wb.Enqueue(score("C", 50)), "queue full")
	assert.Equal(t, 1, wb.Pending())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WriteBack.WithLabelValues(metrics.WriteDropped)))

	close(store.release)
	require.NoError(t, wb.Close(context.Background()))
	assert.Equal(t, []string{"A", "B"}, store.writtenTickers())
}

func TestWriteBackFailureIsCounted(t *testing.T) {
	store := newFakeStore()
	store.failWrites = true
	m := metrics.New()
	wb := NewWriteBack(store, WriteBackConfig{}, logger.NewNop(), m)

	wb.Enqueue(score("AAPL", 70))
	require.NoError(t, wb.Close(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WriteBack.WithLabelValues(metrics.WriteFailed)))
}

func TestWriteBackEnqueueAfterClose(t *testing.T) {
	wb := NewWriteBack(newFakeStore(), WriteBackConfig{}, logger.NewNop(), nil)
	require.NoError(t, wb.Close(context.Background()))

	assert.False(t, wb.Enqueue(score("AAPL", 70)))
	assert.NoError(t, wb.Close(context.Background()))
}
