package rx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerOrder(t *testing.T) {
	w := NewWorker(4)
	defer w.Close()

	var got []int
	for i := 0; i < 3; i++ {
		i := i
		require.True(t, w.Raise(func() { got = append(got, i) }))
	}
	w.Post(func() { got = append(got, 3) })

	assert.Equal(t, []int{0, 1, 2, 3}, got)
}

func TestWorkerRaiseFull(t *testing.T) {
	w := NewWorker(1)
	defer w.Close()

	started, release := make(chan struct{}), make(chan struct{})
	require.True(t, w.Raise(func() {
		close(started)
		<-release
	}))
	<-started

	var ran, dropped bool
	assert.True(t, w.Raise(func() { ran = true }))
	assert.False(t, w.Raise(func() { dropped = true }))

	close(release)
	w.Post(func() {})

	assert.True(t, ran)
	assert.False(t, dropped)
}

func TestWorkerClosed(t *testing.T) {
	w := NewWorker(1)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	// must not block
	w.Post(func() {})
}

func TestImmediate(t *testing.T) {
	var n int
	d := Immediate{}
	assert.True(t, d.Raise(func() { n++ }))
	d.Post(func() { n++ })
	assert.Equal(t, 2, n)
}

func TestWorkerSync(t *testing.T) {
	w := NewWorker(4)

	var n int
	for i := 0; i < 3; i++ {
		require.True(t, w.Raise(func() { n++ }))
	}
	w.Sync()
	assert.Equal(t, 3, n)

	require.NoError(t, w.Close())
	// must not block
	w.Sync()
}
