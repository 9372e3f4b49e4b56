package cmdqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPushAndDrainRunsInFIFOOrder(t *testing.T) {
	q := New(4, nil)
	var order []int

	assert.True(t, q.Push(func() bool { order = append(order, 1); return true }))
	assert.True(t, q.Push(func() bool { order = append(order, 2); return true }))
	assert.True(t, q.Push(func() bool { order = append(order, 3); return true }))

	q.Drain()
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, q.Len())
}

func TestPushFailsClosedWhenFull(t *testing.T) {
	q := New(2, nil)
	assert.True(t, q.Push(func() bool { return true }))
	assert.True(t, q.Push(func() bool { return true }))
	assert.False(t, q.Push(func() bool { return true }))
}

func TestDrainClearsQueueEvenOnFailedCommand(t *testing.T) {
	q := New(2, nil)
	q.Push(func() bool { return false })
	q.Drain()
	assert.Equal(t, 0, q.Len())
}

func TestQueueReusableAfterDrain(t *testing.T) {
	q := New(2, nil)
	q.Push(func() bool { return true })
	q.Drain()

	assert.True(t, q.Push(func() bool { return true }))
	assert.True(t, q.Push(func() bool { return true }))
	assert.Equal(t, 2, q.Len())
}
