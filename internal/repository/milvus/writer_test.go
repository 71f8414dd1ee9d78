package milvus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
)

func TestWriterEnsureIndex_CreatesAndLoads(t *testing.T) {
	mc := &mockClient{hasCollectionFn: func(string) (bool, error) { return false, nil }}
	spec := cohereSpec(t)
	w := NewWriter(mc, "", 0, []provider.Spec{spec})

	created, err := w.EnsureIndex(context.Background(), []provider.Spec{spec}, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"create", "index " + spec.VectorField(), "load"}, mc.calls)
}

func TestWriterWaitIndexed_PollsUntilLoaded(t *testing.T) {
	progress := []int64{40, 100}
	mc := &mockClient{progressFn: func(string) (int64, error) {
		p := progress[0]
		progress = progress[1:]
		return p, nil
	}}
	w := NewWriter(mc, "", 0, nil)
	w.poll = time.Millisecond

	require.NoError(t, w.WaitIndexed(context.Background()))
	assert.Equal(t, []string{"flush", "progress", "progress"}, mc.calls)
}

func TestWriterWaitIndexed_FlushError(t *testing.T) {
	mc := &mockClient{flushFn: func(string) error { return errors.New("segment sealed") }}
	w := NewWriter(mc, "", 0, nil)

	err := w.WaitIndexed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush collection papers")
	assert.Equal(t, []string{"flush"}, mc.calls)
}

func TestWriterWaitIndexed_ContextDone(t *testing.T) {
	mc := &mockClient{progressFn: func(string) (int64, error) { return 10, nil }}
	w := NewWriter(mc, "", 0, nil)
	w.poll = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.WaitIndexed(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
