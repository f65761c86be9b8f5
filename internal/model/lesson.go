package model

// Lesson content types.
const (
	LessonTypeVideo       = "video"
	LessonTypeReading     = "reading"
	LessonTypeInteractive = "interactive"
	LessonTypeQuiz        = "quiz"
	LessonTypeLab         = "lab"
)

// Access levels gating which content tier a viewer sees. AccessLevelAll is the
// wire default the backend applies when no tier was chosen.
const (
	AccessLevelAll          = "all"
	AccessLevelBasic        = "basic"
	AccessLevelIntermediate = "intermediate"
	AccessLevelAdvanced     = "advanced"
)

// Lesson is a single content unit inside a module. The three content bodies
// correspond to the access tiers; unused tiers stay empty.
type Lesson struct {
	ID                  string `json:"id,omitempty"`
	Title               string `json:"title"`
	Type                string `json:"type"`
	Duration            string `json:"duration"`
	Order               int    `json:"order"`
	AccessLevel         string `json:"access_level"`
	IsFreePreview       bool   `json:"is_free_preview"`
	ContentBasic        string `json:"content_basic"`
	ContentIntermediate string `json:"content_intermediate"`
	ContentAdvanced     string `json:"content_advanced"`
}

// ValidLessonType reports whether t is one of the known lesson types.
func ValidLessonType(t string) bool {
	switch t {
	case LessonTypeVideo, LessonTypeReading, LessonTypeInteractive, LessonTypeQuiz, LessonTypeLab:
		return true
	}
	return false
}
