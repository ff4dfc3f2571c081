package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rod-records/internal/entity"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

func TestResultCache_PutGet(t *testing.T) {
	c := NewResultCache(time.Minute, time.Minute)
	rec := &entity.Record{ContentHash: "abc", Result: extract.Result{RawText: "x", Warnings: []string{"w"}}}
	c.Put(rec)

	got, ok := c.Get("abc")
	require.True(t, ok)
	assert.Equal(t, "x", got.Result.RawText)

	got.Result.Warnings[0] = "mutated"
	again, _ := c.Get("abc")
	assert.Equal(t, "w", again.Result.Warnings[0])
	assert.Equal(t, 1, c.Len())

	c.Delete("abc")
	_, ok = c.Get("abc")
	assert.False(t, ok)
}

func TestResultCache_SkipsFailedAndUnhashed(t *testing.T) {
	c := NewResultCache(0, 0)
	c.Put(&entity.Record{ContentHash: "abc", Result: extract.Result{Error: "boom"}})
	c.Put(&entity.Record{})
	assert.Equal(t, 0, c.Len())
}

func TestResultCache_Expiry(t *testing.T) {
	c := NewResultCache(10*time.Millisecond, 0)
	c.Put(&entity.Record{ContentHash: "abc"})
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("abc")
	assert.False(t, ok)
}

func TestResultCache_NilSafe(t *testing.T) {
	var c *ResultCache
	c.Put(&entity.Record{ContentHash: "abc"})
	_, ok := c.Get("abc")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
