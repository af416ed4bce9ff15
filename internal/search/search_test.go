package search

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	base := url.Values{"page": {"3"}, "query": {"old"}}

	next := Apply(base, "lee")
	assert.Equal(t, "lee", next.Get(QueryKey))
	assert.Equal(t, "3", next.Get(PageKey), "page is owned by the consumer")
	assert.Equal(t, "old", base.Get(QueryKey), "input is not mutated")

	cleared := Apply(base, "")
	_, has := cleared[QueryKey]
	assert.False(t, has)
}

func TestResetPage(t *testing.T) {
	base := url.Values{"page": {"4"}, "query": {"x"}}
	next := ResetPage(base)
	assert.Equal(t, "1", next.Get(PageKey))
	assert.Equal(t, "x", next.Get(QueryKey))
	assert.Equal(t, "4", base.Get(PageKey))
}

type collector struct {
	mu      sync.Mutex
	updates []url.Values
}

func (c *collector) onChange(v url.Values) {
	c.mu.Lock()
	c.updates = append(c.updates, v)
	c.mu.Unlock()
}

func (c *collector) snapshot() []url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]url.Values(nil), c.updates...)
}

func TestSynchronizer_DebouncesToLastTerm(t *testing.T) {
	c := &collector{}
	s := NewSynchronizer(url.Values{}, c.onChange, WithDelay(50*time.Millisecond))

	s.Input("l")
	time.Sleep(10 * time.Millisecond)
	s.Input("le")
	time.Sleep(10 * time.Millisecond)
	s.Input("lee")
	assert.True(t, s.Pending())

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	updates := c.snapshot()
	require.Len(t, updates, 1)
	assert.Equal(t, "lee", updates[0].Get(QueryKey))
	assert.False(t, s.Pending())
	assert.Equal(t, "lee", s.Values().Get(QueryKey))
}

func TestSynchronizer_EmptyTermRemovesQuery(t *testing.T) {
	c := &collector{}
	s := NewSynchronizer(url.Values{"query": {"lee"}, "page": {"2"}}, c.onChange, WithDelay(10*time.Millisecond))

	s.Input("")
	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	got := c.snapshot()[0]
	_, has := got[QueryKey]
	assert.False(t, has)
	assert.Equal(t, "2", got.Get(PageKey))
}

func TestSynchronizer_StopCancelsPending(t *testing.T) {
	c := &collector{}
	s := NewSynchronizer(nil, c.onChange, WithDelay(20*time.Millisecond))

	s.Input("lee")
	s.Stop()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, c.snapshot())
	assert.False(t, s.Pending())
}

func TestSynchronizer_InputReturnsImmediately(t *testing.T) {
	s := NewSynchronizer(nil, func(url.Values) {}, WithDelay(time.Hour))
	start := time.Now()
	s.Input("x")
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	s.Stop()
}
