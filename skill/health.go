package skill

import "time"

type HealthTier string

const (
	HealthExcellent HealthTier = "excellent"
	HealthGood      HealthTier = "good"
	HealthFair      HealthTier = "fair"
	HealthPoor      HealthTier = "poor"
)

// SkillHealth is the per-skill slice of the health report.
type SkillHealth struct {
	Name           string        `json:"name"`
	Executions     int64         `json:"executions"`
	SuccessRate    float64       `json:"successRate"`
	AverageLatency time.Duration `json:"averageLatency"`
	LastExecuted   time.Time     `json:"lastExecuted,omitempty"`
}

// SystemHealth aggregates per-skill metrics for operational visibility. It is
// never used for control flow.
type SystemHealth struct {
	Tier               HealthTier    `json:"tier"`
	OverallSuccessRate float64       `json:"overallSuccessRate"`
	AverageLatency     time.Duration `json:"averageLatency"`
	Skills             []SkillHealth `json:"skills"`
}

// SystemHealth buckets the overall success rate into fixed tiers.
func (r *Registry) SystemHealth() SystemHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	var totalExecutions, totalSuccesses int64
	var weightedLatency int64
	skills := make([]SkillHealth, 0, r.skills.Len())
	for pair := r.skills.Oldest(); pair != nil; pair = pair.Next() {
		m := pair.Value.metrics
		skills = append(skills, SkillHealth{
			Name:           pair.Key,
			Executions:     m.Executions,
			SuccessRate:    m.SuccessRate(),
			AverageLatency: m.AverageLatency,
			LastExecuted:   m.LastExecuted,
		})
		totalExecutions += m.Executions
		totalSuccesses += m.Successes
		weightedLatency += int64(m.AverageLatency) * m.Executions
	}

	health := SystemHealth{
		OverallSuccessRate: 1.0,
		Skills:             skills,
	}
	if totalExecutions > 0 {
		health.OverallSuccessRate = float64(totalSuccesses) / float64(totalExecutions)
		health.AverageLatency = time.Duration(weightedLatency / totalExecutions)
	}
	health.Tier = tierFor(health.OverallSuccessRate)
	return health
}

func tierFor(successRate float64) HealthTier {
	switch {
	case successRate >= 0.95:
		return HealthExcellent
	case successRate >= 0.85:
		return HealthGood
	case successRate >= 0.70:
		return HealthFair
	default:
		return HealthPoor
	}
}
