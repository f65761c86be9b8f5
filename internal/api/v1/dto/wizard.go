package dto

import "app/internal/model"

// SessionCreateDTO opens a wizard session: empty body starts a new course,
// a slug loads an existing one.
type SessionCreateDTO struct {
	Slug *string `json:"slug,omitempty"`
}

// CourseUpdateDTO shallow-merges course scalar fields. Absent fields are left
// untouched.
type CourseUpdateDTO struct {
	Title         *string   `json:"title,omitempty"`
	Subtitle      *string   `json:"subtitle,omitempty"`
	Description   *string   `json:"description,omitempty"`
	CategoryID    *string   `json:"category_id,omitempty"`
	Level         *string   `json:"level,omitempty"`
	Price         *string   `json:"price,omitempty"`
	DiscountPrice *string   `json:"discount_price,omitempty"`
	ThumbnailURL  *string   `json:"thumbnail_url,omitempty"`
	Certificate   *bool     `json:"certificate,omitempty"`
	Featured      *bool     `json:"featured,omitempty"`
	Requirements  *[]string `json:"requirements,omitempty"`
	Skills        *[]string `json:"skills,omitempty"`
}

// ModuleDTO is used for both module creation and update requests.
type ModuleDTO struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Duration    *string `json:"duration,omitempty"`
}

// LessonDTO is used for both lesson creation and update requests.
type LessonDTO struct {
	Title               *string `json:"title,omitempty"`
	Type                *string `json:"type,omitempty" validate:"omitempty,oneof=video reading interactive quiz lab"`
	Duration            *string `json:"duration,omitempty"`
	AccessLevel         *string `json:"access_level,omitempty" validate:"omitempty,oneof=all basic intermediate advanced"`
	IsFreePreview       *bool   `json:"is_free_preview,omitempty"`
	ContentBasic        *string `json:"content_basic,omitempty"`
	ContentIntermediate *string `json:"content_intermediate,omitempty"`
	ContentAdvanced     *string `json:"content_advanced,omitempty"`
}

// ReorderDTO names sibling module ids in their new order.
type ReorderDTO struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// StepDTO jumps the wizard to a specific step.
type StepDTO struct {
	Step int `json:"step" validate:"required,min=1,max=5"`
}

// PublishDTO sets the desired published flag.
type PublishDTO struct {
	Published bool `json:"published"`
}

// EntityCreatedDTO returns the temp id allocated for a new module or lesson.
type EntityCreatedDTO struct {
	ID string `json:"id"`
}

// VerdictDTO mirrors the step validator result.
type VerdictDTO struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ReadinessDTO mirrors the publish readiness score.
type ReadinessDTO struct {
	Score   int      `json:"score"`
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing,omitempty"`
}

// SessionStateDTO is the full wizard session view returned after every
// operation that changes state.
type SessionStateDTO struct {
	SessionID  string       `json:"session_id"`
	Step       int          `json:"step"`
	TotalSteps int          `json:"total_steps"`
	Dirty      bool         `json:"dirty"`
	SaveStatus string       `json:"save_status"`
	SaveError  string       `json:"save_error,omitempty"`
	Course     model.Course `json:"course"`
}
