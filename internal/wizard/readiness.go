package wizard

import (
	"strings"

	"app/internal/model"
)

// ReadinessPolicy weights the publish-readiness heuristic. The score is a UI
// affordance, not a backend invariant, so every weight and the threshold are
// configurable.
type ReadinessPolicy struct {
	TitleWeight       int
	SubtitleWeight    int
	DescriptionWeight int
	ThumbnailWeight   int
	ModulesWeight     int
	MinDescriptionLen int
	MinModules        int
	ReadyThreshold    int
}

// DefaultReadinessPolicy mirrors the weights shown in the authoring UI.
func DefaultReadinessPolicy() ReadinessPolicy {
	return ReadinessPolicy{
		TitleWeight:       25,
		SubtitleWeight:    10,
		DescriptionWeight: 25,
		ThumbnailWeight:   15,
		ModulesWeight:     25,
		MinDescriptionLen: 50,
		MinModules:        1,
		ReadyThreshold:    75,
	}
}

func (p ReadinessPolicy) withDefaults() ReadinessPolicy {
	if p == (ReadinessPolicy{}) {
		return DefaultReadinessPolicy()
	}
	return p
}

// Readiness is a completeness score between 0 and the sum of the weights,
// with the fields still missing.
type Readiness struct {
	Score   int      `json:"score"`
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing,omitempty"`
}

// ScoreReadiness evaluates the heuristic against the course.
func ScoreReadiness(c model.Course, p ReadinessPolicy) Readiness {
	var r Readiness
	score := func(ok bool, weight int, field string) {
		if ok {
			r.Score += weight
		} else {
			r.Missing = append(r.Missing, field)
		}
	}
	score(strings.TrimSpace(c.Title) != "", p.TitleWeight, "title")
	score(strings.TrimSpace(c.Subtitle) != "", p.SubtitleWeight, "subtitle")
	score(len(strings.TrimSpace(c.Description)) >= p.MinDescriptionLen, p.DescriptionWeight, "description")
	score(c.ThumbnailURL != "", p.ThumbnailWeight, "thumbnail")
	score(len(c.Modules) >= p.MinModules, p.ModulesWeight, "modules")
	r.Ready = r.Score >= p.ReadyThreshold
	return r
}
