package linker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueRunsInOrder(t *testing.T) {
	q := NewQueue()
	var order []int
	q.Enqueue(ResolveCall, func() error { order = append(order, 1); return nil })
	q.Enqueue(WriteElement, func() error { order = append(order, 2); return nil })
	q.Enqueue(WriteData, func() error { order = append(order, 3); return nil })

	require.Equal(t, 3, q.Len())
	require.NoError(t, q.Run())
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestQueueStopsAtFirstError(t *testing.T) {
	q := NewQueue()
	boom := errors.New("boom")
	var ran []int
	q.Enqueue(InitGlobal, func() error { ran = append(ran, 1); return nil })
	q.Enqueue(InitGlobal, func() error { ran = append(ran, 2); return boom })
	q.Enqueue(InitGlobal, func() error { ran = append(ran, 3); return nil })

	err := q.Run()
	require.ErrorIs(t, err, boom)
	require.Equal(t, []int{1, 2}, ran)
}

func TestQueueEntriesExposesKinds(t *testing.T) {
	q := NewQueue()
	q.Enqueue(WriteData, func() error { return nil })
	entries := q.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, WriteData, entries[0].Kind)
}
