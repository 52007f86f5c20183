package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	ID   int
	Name string
}

func TestQueue_PushLen(t *testing.T) {
	q := New[testItem]()
	require.NotNil(t, q)
	assert.Equal(t, 0, q.Len())

	q.Push(testItem{ID: 1, Name: "first"})
	q.Push(testItem{ID: 2}, testItem{ID: 3})
	assert.Equal(t, 3, q.Len())

	got := q.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, testItem{ID: 1, Name: "first"}, got[0])
}

func TestQueue_Drain(t *testing.T) {
	q := New[int]()
	assert.Nil(t, q.Drain())

	q.Push(1, 2, 3)
	assert.Equal(t, []int{1, 2, 3}, q.Drain())
	assert.Equal(t, 0, q.Len())

	q.Push(4)
	assert.Equal(t, []int{4}, q.Drain(), "queue is reusable after drain")
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 16, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	items := q.Drain()
	require.Len(t, items, producers*perProducer)

	seen := make(map[int]bool, len(items))
	for _, v := range items {
		assert.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
}

func TestQueue_DrainWhilePushing(t *testing.T) {
	q := New[int]()
	done := make(chan struct{})
	total := 0

	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			q.Push(i)
		}
	}()

	for {
		total += len(q.Drain())
		select {
		case <-done:
			total += len(q.Drain())
			assert.Equal(t, 1000, total)
			return
		default:
		}
	}
}
