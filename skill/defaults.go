package skill

// Built-in skill names.
const (
	SkillTimelineExtraction     = "timeline-extraction"
	SkillScheduleOptimization   = "schedule-optimization"
	SkillTimelineAnalysis       = "timeline-analysis"
	SkillNaturalLanguageRequest = "natural-language-request"
)

// RegisterDefaults installs the catalog of skills the gateway is expected to
// serve. Deployments can overwrite or extend these at runtime.
func RegisterDefaults(r *Registry) {
	r.RegisterSkill(Definition{
		Name:           SkillTimelineExtraction,
		Category:       CategoryTimelineExtraction,
		RequiredParams: []string{"text"},
		OptionalParams: []string{"outputFormat", "timezone"},
	})
	r.RegisterSkill(Definition{
		Name:           SkillScheduleOptimization,
		Category:       CategoryScheduleOptimization,
		RequiredParams: []string{"events"},
		OptionalParams: []string{"constraints", "profile"},
	})
	r.RegisterSkill(Definition{
		Name:           SkillTimelineAnalysis,
		Category:       CategoryTimelineAnalysis,
		RequiredParams: []string{"events", "profile"},
		OptionalParams: []string{"windowDays"},
	})
	r.RegisterSkill(Definition{
		Name:           SkillNaturalLanguageRequest,
		Category:       CategoryGeneral,
		RequiredParams: []string{"text"},
		OptionalParams: []string{"context"},
	})
}
