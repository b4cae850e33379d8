//go:build linux || darwin

package msgloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *registry {
	t.Helper()
	var p fastPoller
	require.NoError(t, p.init(DefaultMaxEvents))
	r := newRegistry(&p)
	t.Cleanup(func() { _, _ = r.close() })
	return r
}

func TestRegistry_StaleGeneration(t *testing.T) {
	reg := newTestRegistry(t)
	fd, _ := testPipe(t)
	ev := EventFunc(func(IOEvents) {})

	require.NoError(t, reg.add(fd, ev, EventRead, false, false))
	first := reg.lookup(fd, 0)
	require.NotNil(t, first)

	_, err := reg.remove(fd)
	require.NoError(t, err)
	assert.Nil(t, reg.lookup(fd, first.gen))

	// same fd, new registration
	require.NoError(t, reg.add(fd, ev, EventRead, false, false))
	second := reg.lookup(fd, 0)
	require.NotNil(t, second)
	assert.NotEqual(t, first.gen, second.gen)
	assert.Nil(t, reg.lookup(fd, first.gen))
	assert.Same(t, second, reg.lookup(fd, second.gen))
}

func TestRegistry_GenerationSkipsZero(t *testing.T) {
	reg := newTestRegistry(t)
	reg.nextGen = ^uint32(0)
	assert.Equal(t, uint32(1), reg.generation())
}

type closeRecorder struct {
	EventFunc
	closed int
}

func (x *closeRecorder) Close() error {
	x.closed++
	return nil
}

func TestRegistry_ReleaseOneShot(t *testing.T) {
	reg := newTestRegistry(t)
	fd, _ := testPipe(t)
	ev := &closeRecorder{EventFunc: func(IOEvents) {}}

	require.NoError(t, reg.add(fd, ev, EventRead, true, true))
	w := reg.lookup(fd, 0)
	require.NotNil(t, w)
	assert.False(t, reg.watched(fd))
	assert.Equal(t, 0, reg.count())

	reg.release(fd, w)
	assert.Nil(t, reg.lookup(fd, 0))
	assert.Equal(t, 1, ev.closed)
}

func TestRegistry_ReleaseReplaced(t *testing.T) {
	reg := newTestRegistry(t)
	fd, _ := testPipe(t)
	old := &closeRecorder{EventFunc: func(IOEvents) {}}

	require.NoError(t, reg.add(fd, old, EventRead, true, false))
	w := reg.lookup(fd, 0)
	_, err := reg.remove(fd)
	require.NoError(t, err)
	require.NoError(t, reg.add(fd, EventFunc(func(IOEvents) {}), EventRead, false, false))

	// the new registration survives releasing the old one
	reg.release(fd, w)
	assert.True(t, reg.watched(fd))
	assert.Equal(t, 1, old.closed)
}

func TestRegistry_Close(t *testing.T) {
	var p fastPoller
	require.NoError(t, p.init(DefaultMaxEvents))
	reg := newRegistry(&p)
	a, b := testPipe(t)
	quit := &closeRecorder{EventFunc: func(IOEvents) {}}
	user := &closeRecorder{EventFunc: func(IOEvents) {}}

	require.NoError(t, reg.add(a, user, EventRead, false, false))
	require.NoError(t, reg.add(b, quit, EventWrite, true, true))

	dropped, err := reg.close()
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, quit.closed)
	assert.Equal(t, 0, user.closed)

	_, err = reg.close()
	assert.True(t, errors.Is(err, ErrPollerClosed))
	assert.ErrorIs(t, reg.add(a, user, EventRead, false, false), ErrPollerClosed)
	assert.ErrorIs(t, reg.modify(a, nil, EventRead), ErrPollerClosed)
	_, err = reg.remove(a)
	assert.ErrorIs(t, err, ErrPollerClosed)
}

func TestRegistry_ZeroInterest(t *testing.T) {
	reg := newTestRegistry(t)
	fd, _ := testPipe(t)
	require.NoError(t, reg.add(fd, EventFunc(func(IOEvents) {}), 0, false, false))
	assert.Equal(t, DefaultInterest, reg.lookup(fd, 0).interest)
}
