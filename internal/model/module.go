package model

// Module is a titled section of a course. ID holds either a client temp id or
// the server-assigned id.
type Module struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    string   `json:"duration"`
	Order       int      `json:"order"`
	Lessons     []Lesson `json:"lessons"`
}

// Clone returns a deep copy of the module and its lessons.
func (m Module) Clone() Module {
	out := m
	if m.Lessons != nil {
		out.Lessons = make([]Lesson, len(m.Lessons))
		copy(out.Lessons, m.Lessons)
	}
	return out
}

// FindLesson returns the index of the lesson with the given id, or -1.
func (m Module) FindLesson(id string) int {
	for i, l := range m.Lessons {
		if l.ID == id {
			return i
		}
	}
	return -1
}
