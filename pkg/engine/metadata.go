package engine

import (
	"sort"
	"sync"
	"time"
)

// BailoutDiagnostic explains why a page could not be statically cached.
type BailoutDiagnostic struct {
	Description string
	Stack       string
}

// FetchMetrics aggregates the data fetches performed during one render.
type FetchMetrics struct {
	Count    int
	Duration time.Duration
}

// RenderResultMetadata is the bookkeeping attached to every render result:
// cache tags and revalidation for the caching layer, the postponed token for
// partial prerenders, and diagnostics for the build.
type RenderResultMetadata struct {
	mu sync.Mutex

	tags         map[string]struct{}
	revalidate   int
	explicitZero bool
	frozen       bool

	PostponedToken string
	Fetches        FetchMetrics
	Bailout        *BailoutDiagnostic
}

func newMetadata(defaultRevalidate int) *RenderResultMetadata {
	return &RenderResultMetadata{
		tags:       make(map[string]struct{}),
		revalidate: defaultRevalidate,
	}
}

// AddCacheTag associates a cache tag with the result. Duplicates collapse.
func (m *RenderResultMetadata) AddCacheTag(tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tags {
		if t != "" {
			m.tags[t] = struct{}{}
		}
	}
}

// CacheTags returns the accumulated tags in sorted order.
func (m *RenderResultMetadata) CacheTags() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tags))
	for t := range m.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// SetRevalidate lowers the revalidation interval in seconds. Renders keep
// the smallest non-zero interval any segment asked for; zero marks the whole
// result uncacheable and wins over everything.
func (m *RenderResultMetadata) SetRevalidate(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return
	}
	if seconds <= 0 {
		m.revalidate = 0
		m.explicitZero = true
		return
	}
	if m.explicitZero {
		return
	}
	if m.revalidate == 0 || seconds < m.revalidate {
		m.revalidate = seconds
	}
}

// Revalidate returns the resolved revalidation interval in seconds.
// Zero means the result must not be cached.
func (m *RenderResultMetadata) Revalidate() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revalidate
}

func (m *RenderResultMetadata) freezeRevalidate(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revalidate = seconds
	m.frozen = true
}

// RecordFetch counts one data fetch of the given duration.
func (m *RenderResultMetadata) RecordFetch(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches.Count++
	m.Fetches.Duration += d
}

func (m *RenderResultMetadata) setBailout(description string, stack []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Bailout == nil {
		m.Bailout = &BailoutDiagnostic{Description: description, Stack: string(stack)}
	}
}
