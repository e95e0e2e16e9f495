package pipeline

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/opera-adt/tropo-validator/internal/domain"
)

// ReportCache remembers reports by input file identity so redelivered jobs
// for an unchanged file are answered without re-reading it.
type ReportCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Report
	prev  *entry
	next  *entry
}

// NewReportCache creates a cache holding at most maxEntries reports.
func NewReportCache(maxEntries int) *ReportCache {
	return &ReportCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// cacheKey identifies a file by path, size and modification time.
func cacheKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
}

// Get returns a copy of the cached report.
func (c *ReportCache) Get(key string) (domain.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Report{}, false
	}
	c.moveToFront(e)
	return copyReport(e.value), true
}

// Put stores a copy of report, evicting the least recently used entry when
// the cache is full.
func (c *ReportCache) Put(key string, report domain.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report = copyReport(report)
	if e, ok := c.entries[key]; ok {
		e.value = report
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: report}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len returns the number of cached reports.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copyReport(r domain.Report) domain.Report {
	r.Variables = maps.Clone(r.Variables)
	r.Issues = slices.Clone(r.Issues)
	return r
}

func (c *ReportCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *ReportCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *ReportCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *ReportCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
