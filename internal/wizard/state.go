package wizard

import (
	"app/internal/model"
	"app/internal/tempid"
)

// TotalSteps is the number of wizard steps: basics, details, modules, content,
// review.
const TotalSteps = 5

// SaveStatus tracks the autosave lifecycle for the session.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveFailed SaveStatus = "failed"
)

// State is the single source of truth for one editing session. Values are
// treated as immutable: Reduce returns a fresh State and never mutates its
// input.
type State struct {
	Course              model.Course
	Step                int
	Dirty               bool
	SaveStatus          SaveStatus
	SaveError           string
	InitialPublishState bool

	// sent records the id layout of the tree at save start. Server-assigned
	// ids are paired against it by position, so structural edits landing
	// while the save is in flight cannot shift the pairing.
	sent []sentModule
}

// sentModule is the positional id layout of one module in a transmitted
// payload.
type sentModule struct {
	ID      string
	Lessons []string
}

// NewState seeds a session from a previously persisted course, or from
// defaults when existing is nil.
func NewState(existing *model.Course) State {
	s := State{
		Step:       1,
		SaveStatus: SaveIdle,
	}
	if existing != nil {
		s.Course = existing.Clone()
		s.InitialPublishState = existing.Published
	}
	if s.Course.Requirements == nil {
		s.Course.Requirements = []string{}
	}
	if s.Course.Skills == nil {
		s.Course.Skills = []string{}
	}
	if s.Course.Modules == nil {
		s.Course.Modules = []model.Module{}
	}
	return s
}

// Op is a state transition applied by Reduce. The set is sealed to this
// package.
type Op interface{ isOp() }

// CoursePatch carries a shallow merge of course scalar fields. Nil pointers
// leave the field untouched.
type CoursePatch struct {
	Title         *string
	Subtitle      *string
	Description   *string
	CategoryID    *string
	Level         *string
	Price         *string
	DiscountPrice *string
	ThumbnailURL  *string
	Certificate   *bool
	Featured      *bool
	Requirements  *[]string
	Skills        *[]string
}

// ModulePatch carries a shallow merge of module fields.
type ModulePatch struct {
	Title       *string
	Description *string
	Duration    *string
}

// LessonPatch carries a shallow merge of lesson fields.
type LessonPatch struct {
	Title               *string
	Type                *string
	Duration            *string
	AccessLevel         *string
	IsFreePreview       *bool
	ContentBasic        *string
	ContentIntermediate *string
	ContentAdvanced     *string
}

// Mutation ops. Entity ids for Add ops are allocated by the caller so the
// reducer stays pure.
type (
	UpdateCourseOp struct{ Patch CoursePatch }
	AddModuleOp    struct {
		ID    string
		Patch ModulePatch
	}
	UpdateModuleOp struct {
		ID    string
		Patch ModulePatch
	}
	RemoveModuleOp struct{ ID string }
	AddLessonOp    struct {
		ModuleID string
		ID       string
		Patch    LessonPatch
	}
	UpdateLessonOp struct {
		ModuleID string
		LessonID string
		Patch    LessonPatch
	}
	RemoveLessonOp struct {
		ModuleID string
		LessonID string
	}
	ReorderModulesOp struct{ IDs []string }
	SetPublishedOp   struct{ Published bool }
)

// Navigation and save-lifecycle ops.
type (
	SetStepOp     struct{ Step int }
	NextStepOp    struct{}
	PrevStepOp    struct{}
	SaveStartOp   struct{}
	SaveSuccessOp struct{ Server *model.Course }
	SaveFailureOp struct{ Message string }
)

func (UpdateCourseOp) isOp()   {}
func (AddModuleOp) isOp()      {}
func (UpdateModuleOp) isOp()   {}
func (RemoveModuleOp) isOp()   {}
func (AddLessonOp) isOp()      {}
func (UpdateLessonOp) isOp()   {}
func (RemoveLessonOp) isOp()   {}
func (ReorderModulesOp) isOp() {}
func (SetPublishedOp) isOp()   {}
func (SetStepOp) isOp()        {}
func (NextStepOp) isOp()       {}
func (PrevStepOp) isOp()       {}
func (SaveStartOp) isOp()      {}
func (SaveSuccessOp) isOp()    {}
func (SaveFailureOp) isOp()    {}

// Reduce applies op to s and returns the next state. Pure and total: no I/O,
// and an op that names a missing entity is a no-op rather than an error.
func Reduce(s State, op Op) State {
	switch op := op.(type) {
	case UpdateCourseOp:
		next := markDirty(s)
		next.Course = applyCoursePatch(next.Course, op.Patch)
		return next

	case AddModuleOp:
		next := markDirty(s)
		m := model.Module{
			ID:      op.ID,
			Order:   len(next.Course.Modules) + 1,
			Lessons: []model.Lesson{},
		}
		m = applyModulePatch(m, op.Patch)
		next.Course.Modules = append(next.Course.Modules, m)
		return next

	case UpdateModuleOp:
		i := s.Course.FindModule(op.ID)
		if i < 0 {
			return s
		}
		next := markDirty(s)
		next.Course.Modules[i] = applyModulePatch(next.Course.Modules[i], op.Patch)
		return next

	case RemoveModuleOp:
		i := s.Course.FindModule(op.ID)
		if i < 0 {
			return s
		}
		next := markDirty(s)
		// Remaining siblings keep their order values; gaps are preserved.
		next.Course.Modules = append(next.Course.Modules[:i], next.Course.Modules[i+1:]...)
		return next

	case AddLessonOp:
		mi := s.Course.FindModule(op.ModuleID)
		if mi < 0 {
			return s
		}
		next := markDirty(s)
		m := &next.Course.Modules[mi]
		l := model.Lesson{
			ID:    op.ID,
			Type:  model.LessonTypeVideo,
			Order: len(m.Lessons) + 1,
		}
		l = applyLessonPatch(l, op.Patch)
		m.Lessons = append(m.Lessons, l)
		return next

	case UpdateLessonOp:
		mi := s.Course.FindModule(op.ModuleID)
		if mi < 0 {
			return s
		}
		li := s.Course.Modules[mi].FindLesson(op.LessonID)
		if li < 0 {
			return s
		}
		next := markDirty(s)
		next.Course.Modules[mi].Lessons[li] = applyLessonPatch(next.Course.Modules[mi].Lessons[li], op.Patch)
		return next

	case RemoveLessonOp:
		mi := s.Course.FindModule(op.ModuleID)
		if mi < 0 {
			return s
		}
		li := s.Course.Modules[mi].FindLesson(op.LessonID)
		if li < 0 {
			return s
		}
		next := markDirty(s)
		m := &next.Course.Modules[mi]
		m.Lessons = append(m.Lessons[:li], m.Lessons[li+1:]...)
		return next

	case ReorderModulesOp:
		next := markDirty(s)
		next.Course.Modules = reorderModules(next.Course.Modules, op.IDs)
		return next

	case SetPublishedOp:
		next := markDirty(s)
		next.Course.Published = op.Published
		return next

	case SetStepOp:
		next := s.clone()
		next.Step = clampStep(op.Step)
		return next

	case NextStepOp:
		next := s.clone()
		next.Step = clampStep(s.Step + 1)
		return next

	case PrevStepOp:
		next := s.clone()
		next.Step = clampStep(s.Step - 1)
		return next

	case SaveStartOp:
		next := s.clone()
		next.SaveStatus = SaveSaving
		next.SaveError = ""
		// The snapshot being transmitted covers every edit so far; edits that
		// land while the save is in flight re-dirty the state.
		next.Dirty = false
		next.sent = captureSentLayout(next.Course)
		return next

	case SaveSuccessOp:
		next := s.clone()
		next.SaveStatus = SaveSaved
		next.SaveError = ""
		if op.Server != nil {
			next.Course = mergeServerCourse(next.Course, op.Server, s.sent)
		}
		next.sent = nil
		return next

	case SaveFailureOp:
		next := s.clone()
		next.SaveStatus = SaveFailed
		next.SaveError = op.Message
		next.Dirty = true
		next.sent = nil
		return next
	}
	return s
}

// markDirty clones the state for an entity mutation: dirty goes up, and a
// settled save status cycles back to idle. An in-flight save keeps its status.
func markDirty(s State) State {
	next := s.clone()
	next.Dirty = true
	if next.SaveStatus == SaveSaved || next.SaveStatus == SaveFailed {
		next.SaveStatus = SaveIdle
		next.SaveError = ""
	}
	return next
}

func (s State) clone() State {
	next := s
	next.Course = s.Course.Clone()
	return next
}

func clampStep(step int) int {
	if step < 1 {
		return 1
	}
	if step > TotalSteps {
		return TotalSteps
	}
	return step
}

func applyCoursePatch(c model.Course, p CoursePatch) model.Course {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Subtitle != nil {
		c.Subtitle = *p.Subtitle
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.CategoryID != nil {
		c.CategoryID = *p.CategoryID
	}
	if p.Level != nil {
		c.Level = *p.Level
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.DiscountPrice != nil {
		c.DiscountPrice = *p.DiscountPrice
	}
	if p.ThumbnailURL != nil {
		c.ThumbnailURL = *p.ThumbnailURL
	}
	if p.Certificate != nil {
		c.Certificate = *p.Certificate
	}
	if p.Featured != nil {
		c.Featured = *p.Featured
	}
	if p.Requirements != nil {
		c.Requirements = append([]string(nil), (*p.Requirements)...)
	}
	if p.Skills != nil {
		c.Skills = append([]string(nil), (*p.Skills)...)
	}
	return c
}

func applyModulePatch(m model.Module, p ModulePatch) model.Module {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Duration != nil {
		m.Duration = *p.Duration
	}
	return m
}

func applyLessonPatch(l model.Lesson, p LessonPatch) model.Lesson {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Type != nil {
		l.Type = *p.Type
	}
	if p.Duration != nil {
		l.Duration = *p.Duration
	}
	if p.AccessLevel != nil {
		l.AccessLevel = *p.AccessLevel
	}
	if p.IsFreePreview != nil {
		l.IsFreePreview = *p.IsFreePreview
	}
	if p.ContentBasic != nil {
		l.ContentBasic = *p.ContentBasic
	}
	if p.ContentIntermediate != nil {
		l.ContentIntermediate = *p.ContentIntermediate
	}
	if p.ContentAdvanced != nil {
		l.ContentAdvanced = *p.ContentAdvanced
	}
	return l
}

// reorderModules rearranges modules to follow ids and renumbers order 1..n.
// Ids not present are ignored; modules not named keep their relative position
// at the tail.
func reorderModules(modules []model.Module, ids []string) []model.Module {
	out := make([]model.Module, 0, len(modules))
	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		for _, m := range modules {
			if m.ID == id && !taken[id] {
				taken[id] = true
				out = append(out, m)
				break
			}
		}
	}
	for _, m := range modules {
		if !taken[m.ID] {
			out = append(out, m)
		}
	}
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

// captureSentLayout records the ids of the tree at save start, in the array
// positions the payload carries them.
func captureSentLayout(c model.Course) []sentModule {
	sent := make([]sentModule, len(c.Modules))
	for i, m := range c.Modules {
		sm := sentModule{ID: m.ID, Lessons: make([]string, len(m.Lessons))}
		for j, l := range m.Lessons {
			sm.Lessons[j] = l.ID
		}
		sent[i] = sm
	}
	return sent
}

// mergeServerCourse folds server-assigned identity back into the local tree.
// Temp ids were stripped before transmission, so server modules and lessons
// are paired by position against the layout that was sent, never against the
// current tree, which may have shifted under a mid-flight structural edit.
// The resulting temp-to-server id mapping is then applied by id lookup.
// Entities with persisted ids keep them; local field edits are never
// overwritten.
func mergeServerCourse(local model.Course, server *model.Course, sent []sentModule) model.Course {
	if server.ID != "" {
		local.ID = server.ID
	}
	if server.Slug != "" {
		local.Slug = server.Slug
	}

	// Temp ids are unique within a session, so one flat map covers both
	// modules and lessons.
	assigned := map[string]string{}
	for i, sm := range sent {
		if i >= len(server.Modules) {
			break
		}
		srv := server.Modules[i]
		if tempid.IsTemp(sm.ID) && srv.ID != "" {
			assigned[sm.ID] = srv.ID
		}
		for j, lessonID := range sm.Lessons {
			if j >= len(srv.Lessons) {
				break
			}
			if tempid.IsTemp(lessonID) && srv.Lessons[j].ID != "" {
				assigned[lessonID] = srv.Lessons[j].ID
			}
		}
	}
	if len(assigned) == 0 {
		return local
	}

	for mi := range local.Modules {
		m := &local.Modules[mi]
		if id, ok := assigned[m.ID]; ok {
			m.ID = id
		}
		for li := range m.Lessons {
			if id, ok := assigned[m.Lessons[li].ID]; ok {
				m.Lessons[li].ID = id
			}
		}
	}
	return local
}
