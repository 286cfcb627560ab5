package api

import (
	"sort"
	"sync"
	"time"
)

// StatsTracker keeps per-route request statistics for /health
type StatsTracker struct {
	mu    sync.RWMutex
	stats map[string]*RouteStats
}

// NewStatsTracker creates an empty tracker
func NewStatsTracker() *StatsTracker {
	return &StatsTracker{stats: make(map[string]*RouteStats)}
}

// Track records one request. Statuses below 500 count as successes.
func (st *StatsTracker) Track(route, method string, status int, durationMs float64) {
	st.mu.Lock()
	defer st.mu.Unlock()

	key := method + ":" + route
	s, ok := st.stats[key]
	if !ok {
		s = &RouteStats{Route: route, Method: method}
		st.stats[key] = s
	}

	s.TotalRequests++
	if status < 500 {
		s.SuccessCount++
	} else {
		s.FailureCount++
	}
	s.AverageResponseTime = (s.AverageResponseTime*float64(s.TotalRequests-1) + durationMs) / float64(s.TotalRequests)
	s.LastRequestAt = time.Now().UnixMilli()
}

// Snapshot returns a copy of all statistics ordered by route and method
func (st *StatsTracker) Snapshot() []RouteStats {
	st.mu.RLock()
	result := make([]RouteStats, 0, len(st.stats))
	for _, s := range st.stats {
		result = append(result, *s)
	}
	st.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Route != result[j].Route {
			return result[i].Route < result[j].Route
		}
		return result[i].Method < result[j].Method
	})
	return result
}

// Get returns the statistics of one route, or nil
func (st *StatsTracker) Get(route, method string) *RouteStats {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.stats[method+":"+route]
	if !ok {
		return nil
	}
	result := *s
	return &result
}
