package skill

import (
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type Category string

const (
	CategoryTimelineExtraction   Category = "timeline_extraction"
	CategoryScheduleOptimization Category = "schedule_optimization"
	CategoryTimelineAnalysis     Category = "timeline_analysis"
	CategoryGeneral              Category = "general"
)

// Definition is the declarative catalog entry for one remote skill. Identity
// is immutable; only the rolling metrics held by the registry mutate.
type Definition struct {
	Name           string   `json:"name"`
	Category       Category `json:"category"`
	RequiredParams []string `json:"requiredParams,omitempty"`
	OptionalParams []string `json:"optionalParams,omitempty"`
}

// Metrics are rolling per-skill performance stats.
type Metrics struct {
	Executions     int64         `json:"executions"`
	Successes      int64         `json:"successes"`
	AverageLatency time.Duration `json:"averageLatency"`
	LastExecuted   time.Time     `json:"lastExecuted"`
}

func (m Metrics) SuccessRate() float64 {
	if m.Executions == 0 {
		return 1.0
	}
	return float64(m.Successes) / float64(m.Executions)
}

type registeredSkill struct {
	def     Definition
	metrics Metrics
}

// Registry is the catalog of known skills, preserving registration order for
// deterministic health reports.
type Registry struct {
	mu     sync.Mutex
	skills *orderedmap.OrderedMap[string, *registeredSkill]
}

func NewRegistry() *Registry {
	return &Registry{
		skills: orderedmap.New[string, *registeredSkill](),
	}
}

// RegisterSkill stores or overwrites a definition by name. Overwriting keeps
// the skill's position and metrics.
func (r *Registry) RegisterSkill(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.skills.Get(def.Name); ok {
		existing.def = def
		return
	}
	r.skills.Set(def.Name, &registeredSkill{def: def})
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.skills.Get(name); ok {
		return s.def, true
	}
	return Definition{}, false
}

// Definitions lists all registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	defs := make([]Definition, 0, r.skills.Len())
	for pair := r.skills.Oldest(); pair != nil; pair = pair.Next() {
		defs = append(defs, pair.Value.def)
	}
	return defs
}

// MetricsFor returns a copy of a skill's rolling metrics.
func (r *Registry) MetricsFor(name string) (Metrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.skills.Get(name); ok {
		return s.metrics, true
	}
	return Metrics{}, false
}

// recordExecution folds one execution into the skill's rolling metrics. The
// average latency is weighted by execution count.
func (r *Registry) recordExecution(name string, success bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skills.Get(name)
	if !ok {
		return
	}
	s.metrics.Executions++
	if success {
		s.metrics.Successes++
	}
	n := s.metrics.Executions
	s.metrics.AverageLatency = time.Duration(
		(int64(s.metrics.AverageLatency)*(n-1) + int64(latency)) / n,
	)
	s.metrics.LastExecuted = time.Now().UTC()
}
