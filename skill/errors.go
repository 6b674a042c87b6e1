package skill

import (
	"fmt"
	"strings"
)

// UnknownSkillError means the skill name is not in the registry.
type UnknownSkillError struct {
	Name string
}

func (e UnknownSkillError) Error() string {
	return fmt.Sprintf("unknown skill: %s", e.Name)
}

// MissingParametersError means required parameters were absent. It is always
// raised before any network interaction.
type MissingParametersError struct {
	Skill   string
	Missing []string
}

func (e MissingParametersError) Error() string {
	return fmt.Sprintf("skill %s missing required parameters: %s", e.Skill, strings.Join(e.Missing, ", "))
}

// SkillTimeoutError means the gateway did not respond within the per-call
// timeout; the pending request has been evicted.
type SkillTimeoutError struct {
	Name string
}

func (e SkillTimeoutError) Error() string {
	return fmt.Sprintf("skill %s timed out", e.Name)
}

// InvalidSkillResponseError means the gateway responded but the payload
// failed category-specific validation; the malformed response is never
// passed through to callers.
type InvalidSkillResponseError struct {
	Name   string
	Reason string
}

func (e InvalidSkillResponseError) Error() string {
	return fmt.Sprintf("invalid response from skill %s: %s", e.Name, e.Reason)
}
