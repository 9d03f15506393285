package aggregate

import (
	"slices"
	"strings"
	"sync"
)

// Manager keeps one StreamingAggregate per series key.
type Manager struct {
	mu sync.RWMutex

	percentileEnabled  bool
	percentileAccuracy float64

	aggregates map[string]*StreamingAggregate

	stats ManagerStats
}

// ManagerStats holds statistics for the manager.
type ManagerStats struct {
	ActiveAggregates int64
	ValuesProcessed  int64
	Merges           int64
}

// NewManager creates a manager without percentiles.
func NewManager() *Manager {
	return &Manager{
		aggregates: make(map[string]*StreamingAggregate),
	}
}

// NewManagerWithAccuracy creates a manager that tracks percentiles.
func NewManagerWithAccuracy(accuracy float64) *Manager {
	m := NewManager()
	m.percentileEnabled = true
	m.percentileAccuracy = accuracy
	return m
}

// Observe adds a value to the aggregate of key, creating it on first use.
func (m *Manager) Observe(key string, value float64, timestep int) {
	m.mu.Lock()
	agg := m.getOrCreate(key)
	m.stats.ValuesProcessed++
	m.mu.Unlock()

	agg.Add(value, timestep)
}

// Get returns the aggregate for key, if any.
func (m *Manager) Get(key string) (*StreamingAggregate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agg, ok := m.aggregates[key]
	return agg, ok
}

// Merge folds every aggregate of other into m.
func (m *Manager) Merge(other *Manager) {
	if other == nil || other == m {
		return
	}

	other.mu.RLock()
	defer other.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, agg := range other.aggregates {
		m.getOrCreate(key).Merge(agg)
	}
	m.stats.ValuesProcessed += other.stats.ValuesProcessed
	m.stats.Merges++
}

// Results returns the results of all non-empty aggregates ordered by key.
func (m *Manager) Results() []Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.aggregates))
	for _, agg := range m.aggregates {
		if !agg.IsEmpty() {
			results = append(results, agg.Result())
		}
	}
	slices.SortFunc(results, func(a, b Result) int {
		return strings.Compare(a.Key, b.Key)
	})
	return results
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.ActiveAggregates = int64(len(m.aggregates))
	return stats
}

func (m *Manager) getOrCreate(key string) *StreamingAggregate {
	agg, ok := m.aggregates[key]
	if !ok {
		agg = m.createAggregate(key)
		m.aggregates[key] = agg
	}
	return agg
}

// createAggregate creates a new aggregate with the manager's settings.
func (m *Manager) createAggregate(key string) *StreamingAggregate {
	if m.percentileEnabled {
		return NewWithAccuracy(key, m.percentileAccuracy)
	}
	return New(key)
}
