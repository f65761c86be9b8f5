package wizard

import (
	"app/internal/model"
	"app/internal/tempid"
)

// BuildPayload snapshots the course for transmission: temp ids are stripped
// recursively so the backend treats those entities as creates, and lessons
// without an access level get the wire default.
func BuildPayload(c model.Course) *model.Course {
	out := StripTempIDs(c)
	for mi := range out.Modules {
		for li := range out.Modules[mi].Lessons {
			if out.Modules[mi].Lessons[li].AccessLevel == "" {
				out.Modules[mi].Lessons[li].AccessLevel = model.AccessLevelAll
			}
		}
	}
	return &out
}

// StripTempIDs nulls every temp-prefixed id in the tree, leaving persisted ids
// and all other fields untouched. Idempotent: stripping twice equals stripping
// once.
func StripTempIDs(c model.Course) model.Course {
	out := c.Clone()
	if tempid.IsTemp(out.ID) {
		out.ID = ""
	}
	for mi := range out.Modules {
		m := &out.Modules[mi]
		if tempid.IsTemp(m.ID) {
			m.ID = ""
		}
		for li := range m.Lessons {
			if tempid.IsTemp(m.Lessons[li].ID) {
				m.Lessons[li].ID = ""
			}
		}
	}
	return out
}
