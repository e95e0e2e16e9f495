package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opera-adt/tropo-validator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCache_BasicGetPut(t *testing.T) {
	c := NewReportCache(3)

	c.Put("a", domain.Report{JobID: "a"})
	c.Put("b", domain.Report{JobID: "b"})

	r, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", r.JobID)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestReportCache_Eviction(t *testing.T) {
	c := NewReportCache(2)

	c.Put("a", domain.Report{JobID: "a"})
	c.Put("b", domain.Report{JobID: "b"})
	_, _ = c.Get("a") // a is now most recently used
	c.Put("c", domain.Report{JobID: "c"})

	_, ok := c.Get("b")
	assert.False(t, ok, "b should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestReportCache_UpdateExisting(t *testing.T) {
	c := NewReportCache(2)

	c.Put("a", domain.Report{JobID: "old"})
	c.Put("a", domain.Report{JobID: "new"})

	r, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "new", r.JobID)
	assert.Equal(t, 1, c.Len())
}

func TestReportCache_ReturnsCopies(t *testing.T) {
	c := NewReportCache(2)
	c.Put("a", domain.Report{
		Issues:    []string{"one"},
		Variables: map[string]domain.VariableReport{"q": {Clipped: 1}},
	})

	r, _ := c.Get("a")
	r.Issues[0] = "mutated"
	r.Variables["q"] = domain.VariableReport{Clipped: 99}

	again, _ := c.Get("a")
	assert.Equal(t, "one", again.Issues[0])
	assert.Equal(t, 1, again.Variables["q"].Clipped)
}

func TestCacheKey_ChangesWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.nc")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	info, err := os.Stat(path)
	require.NoError(t, err)
	first := cacheKey(path, info)

	require.NoError(t, os.WriteFile(path, []byte("v2-longer"), 0o600))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	info, err = os.Stat(path)
	require.NoError(t, err)

	assert.NotEqual(t, first, cacheKey(path, info))
}

func TestSanitizedPath(t *testing.T) {
	assert.Equal(t, "/data/D_20240426_T12_sanitized.nc", sanitizedPath("/data/D_20240426_T12.nc", "_sanitized"))
	assert.Equal(t, "/data/grid.v2", sanitizedPath("/data/grid", ".v2"))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 400*time.Millisecond, nextBackoff(initialBackoff, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(4*time.Second, maxBackoff))
}
