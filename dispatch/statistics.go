package dispatch

import (
	"sort"
	"time"
)

// OperatorStatus is the read-only dashboard view of one binding.
type OperatorStatus struct {
	Code              string     `json:"code"`
	Name              string     `json:"name"`
	Enabled           bool       `json:"enabled"`
	Status            string     `json:"status"`
	HealthScore       float64    `json:"health_score"`
	LastHealthCheckAt *time.Time `json:"last_health_check_at,omitempty"`
	DisableReason     string     `json:"disable_reason,omitempty"`
	Operational       bool       `json:"operational"`
}

// Statistics aggregates the fleet for operational dashboards.
type Statistics struct {
	Total         int     `json:"total"`
	Enabled       int     `json:"enabled"`
	Disabled      int     `json:"disabled"`
	Operational   int     `json:"operational"`
	AverageHealth float64 `json:"average_health"`
}

// AllStatuses snapshots every binding, sorted by code. Read-only: it never
// touches the store or the cache.
func (r *Registry) AllStatuses() []OperatorStatus {
	threshold := r.cfg.Health.OperationalThreshold

	r.mu.RLock()
	statuses := make([]OperatorStatus, 0, len(r.bindings))
	for code, bound := range r.bindings {
		reg := bound.registration
		var lastCheck *time.Time
		if reg.LastHealthCheckAt != nil {
			checked := *reg.LastHealthCheckAt
			lastCheck = &checked
		}
		statuses = append(statuses, OperatorStatus{
			Code:              code,
			Name:              reg.Name,
			Enabled:           reg.Enabled,
			Status:            string(reg.Status),
			HealthScore:       reg.HealthScore,
			LastHealthCheckAt: lastCheck,
			DisableReason:     reg.DisableReason,
			Operational:       reg.IsOperational(threshold),
		})
	}
	r.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Code < statuses[j].Code })
	return statuses
}

// Statistics aggregates the current snapshot. Read-only.
func (r *Registry) Statistics() Statistics {
	statuses := r.AllStatuses()
	stats := Statistics{Total: len(statuses)}
	var healthSum float64
	for _, status := range statuses {
		if status.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
		if status.Operational {
			stats.Operational++
		}
		healthSum += status.HealthScore
	}
	if stats.Total > 0 {
		stats.AverageHealth = healthSum / float64(stats.Total)
	}
	return stats
}
