//go:build linux || darwin

package msgloop

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngress_ChunkBoundaries(t *testing.T) {
	var q ingress
	const n = chunkSize*3 + 7

	msgs := make([]*tagged, n)
	q.mu.Lock()
	for i := range msgs {
		msgs[i] = &tagged{tag: string(rune('a' + i%26))}
		msgs[i].queue = postedQueue
		q.push(msgs[i])
	}
	q.mu.Unlock()
	require.Equal(t, n, q.len())

	var dst MessageQueue
	assert.Equal(t, n, q.drainInto(&dst))
	assert.Equal(t, 0, q.len())
	assert.Equal(t, n, dst.Len())
	for i := range msgs {
		require.Same(t, msgs[i], dst.PopFront(), i)
	}

	// reusable after draining
	q.mu.Lock()
	q.push(msgs[0])
	q.mu.Unlock()
	assert.Equal(t, 1, q.len())
}

func TestIngress_Discard(t *testing.T) {
	var q ingress
	m := NewMessage(nil)
	m.queue = postedQueue
	q.mu.Lock()
	q.push(m)
	q.mu.Unlock()

	assert.Equal(t, 1, q.discard())
	assert.False(t, m.Linked())
	assert.Equal(t, 0, q.discard())
}

func TestIngress_ConcurrentPush(t *testing.T) {
	var q ingress
	const producers, per = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				m := NewMessage(nil)
				q.mu.Lock()
				m.queue = postedQueue
				q.push(m)
				q.mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var dst MessageQueue
	assert.Equal(t, producers*per, q.drainInto(&dst))
	assert.Equal(t, producers*per, dst.Len())
}
