package wizard

import (
	"strings"
	"testing"

	"app/internal/model"
)

func TestScoreReadiness(t *testing.T) {
	p := DefaultReadinessPolicy()

	r := ScoreReadiness(model.Course{}, p)
	if r.Score != 0 || r.Ready {
		t.Fatalf("empty course score=%d ready=%v", r.Score, r.Ready)
	}
	if len(r.Missing) != 5 {
		t.Fatalf("expected all five fields missing, got %v", r.Missing)
	}

	c := model.Course{
		Title:       "Go",
		Description: strings.Repeat("x", p.MinDescriptionLen),
		Modules:     []model.Module{{ID: "m1"}},
	}
	r = ScoreReadiness(c, p)
	if r.Score != 75 || !r.Ready {
		t.Fatalf("score=%d ready=%v, want 75/true", r.Score, r.Ready)
	}

	// A description below the length floor earns nothing.
	c.Description = "short"
	r = ScoreReadiness(c, p)
	if r.Score != 50 {
		t.Fatalf("short description scored: %d", r.Score)
	}
}

func TestReadinessCustomPolicy(t *testing.T) {
	p := ReadinessPolicy{TitleWeight: 100, ReadyThreshold: 100, MinModules: 1}
	r := ScoreReadiness(model.Course{Title: "Go"}, p)
	if r.Score != 100 || !r.Ready {
		t.Fatalf("custom policy score=%d ready=%v", r.Score, r.Ready)
	}
}
