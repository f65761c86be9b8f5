package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/wizard"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// WizardHandler exposes wizard sessions over HTTP.
type WizardHandler struct {
	sessions *wizard.Manager
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewWizardHandler creates a new WizardHandler.
func NewWizardHandler(sessions *wizard.Manager, validate *validator.Validate, logger zerolog.Logger) *WizardHandler {
	return &WizardHandler{
		sessions: sessions,
		validate: validate,
		logger:   logger.With().Str("service", "WizardHandler").Logger(),
	}
}

// RegisterRoutes mounts wizard routes.
func (h *WizardHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authMw(fn))
	}
	route("POST /wizard/sessions", h.createSession)
	route("GET /wizard/sessions/{id}", h.getSession)
	route("DELETE /wizard/sessions/{id}", h.closeSession)
	route("PATCH /wizard/sessions/{id}/course", h.updateCourse)
	route("POST /wizard/sessions/{id}/modules", h.addModule)
	route("PUT /wizard/sessions/{id}/modules/order", h.reorderModules)
	route("PATCH /wizard/sessions/{id}/modules/{moduleId}", h.updateModule)
	route("DELETE /wizard/sessions/{id}/modules/{moduleId}", h.removeModule)
	route("POST /wizard/sessions/{id}/modules/{moduleId}/lessons", h.addLesson)
	route("PATCH /wizard/sessions/{id}/modules/{moduleId}/lessons/{lessonId}", h.updateLesson)
	route("DELETE /wizard/sessions/{id}/modules/{moduleId}/lessons/{lessonId}", h.removeLesson)
	route("POST /wizard/sessions/{id}/steps/next", h.nextStep)
	route("POST /wizard/sessions/{id}/steps/prev", h.prevStep)
	route("PUT /wizard/sessions/{id}/step", h.setStep)
	route("GET /wizard/sessions/{id}/readiness", h.readiness)
	route("POST /wizard/sessions/{id}/save", h.saveNow)
	route("POST /wizard/sessions/{id}/publish", h.publish)
	route("POST /wizard/sessions/{id}/finish", h.finish)
}

// session resolves the session from the path, writing 404 when absent.
func (h *WizardHandler) session(w http.ResponseWriter, r *http.Request) *wizard.Session {
	s := h.sessions.Get(r.PathValue("id"))
	if s == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil
	}
	return s
}

func (h *WizardHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *WizardHandler) writeState(w http.ResponseWriter, status int, s *wizard.Session) {
	state := s.State()
	resp := dto.SessionStateDTO{
		SessionID:  s.ID(),
		Step:       state.Step,
		TotalSteps: wizard.TotalSteps,
		Dirty:      state.Dirty,
		SaveStatus: string(state.SaveStatus),
		SaveError:  state.SaveError,
		Course:     state.Course,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// createSession opens a wizard session for a new course, or loads an existing
// course by slug.
func (h *WizardHandler) createSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.SessionCreateDTO
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}
	slug := ""
	if req.Slug != nil {
		slug = *req.Slug
	}
	s, err := h.sessions.Open(r.Context(), slug)
	if err != nil {
		h.logger.Error().Err(err).Str("slug", slug).Msg("Failed to open session")
		http.Error(w, "Failed to open session: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeState(w, http.StatusCreated, s)
}

func (h *WizardHandler) getSession(w http.ResponseWriter, r *http.Request) {
	if s := h.session(w, r); s != nil {
		h.writeState(w, http.StatusOK, s)
	}
}

func (h *WizardHandler) closeSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.CloseSession(r.PathValue("id")) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WizardHandler) updateCourse(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req dto.CourseUpdateDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.UpdateCourse(wizard.CoursePatch{
		Title:         req.Title,
		Subtitle:      req.Subtitle,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Level:         req.Level,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		ThumbnailURL:  req.ThumbnailURL,
		Certificate:   req.Certificate,
		Featured:      req.Featured,
		Requirements:  req.Requirements,
		Skills:        req.Skills,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func modulePatch(req dto.ModuleDTO) wizard.ModulePatch {
	return wizard.ModulePatch{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
	}
}

func lessonPatch(req dto.LessonDTO) wizard.LessonPatch {
	return wizard.LessonPatch{
		Title:               req.Title,
		Type:                req.Type,
		Duration:            req.Duration,
		AccessLevel:         req.AccessLevel,
		IsFreePreview:       req.IsFreePreview,
		ContentBasic:        req.ContentBasic,
		ContentIntermediate: req.ContentIntermediate,
		ContentAdvanced:     req.ContentAdvanced,
	}
}

func (h *WizardHandler) addModule(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req dto.ModuleDTO
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}
	id, err := s.AddModule(modulePatch(req))
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, dto.EntityCreatedDTO{ID: id})
}

func (h *WizardHandler) updateModule(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req dto.ModuleDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.UpdateModule(r.PathValue("moduleId"), modulePatch(req)); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func (h *WizardHandler) removeModule(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if err := s.RemoveModule(r.PathValue("moduleId")); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func (h *WizardHandler) reorderModules(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req dto.ReorderDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.ReorderModules(req.IDs); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func (h *WizardHandler) addLesson(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req dto.LessonDTO
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}
	id, err := s.AddLesson(r.PathValue("moduleId"), lessonPatch(req))
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, dto.EntityCreatedDTO{ID: id})
}

func (h *WizardHandler) updateLesson(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req dto.LessonDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.UpdateLesson(r.PathValue("moduleId"), r.PathValue("lessonId"), lessonPatch(req)); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func (h *WizardHandler) removeLesson(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if err := s.RemoveLesson(r.PathValue("moduleId"), r.PathValue("lessonId")); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

// nextStep advances the wizard when the current step validates; otherwise the
// field errors come back with 422 and the step stays put.
func (h *WizardHandler) nextStep(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	verdict, err := s.NextStep()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if !verdict.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, dto.VerdictDTO(verdict))
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func (h *WizardHandler) prevStep(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if err := s.PrevStep(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func (h *WizardHandler) setStep(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req dto.StepDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SetStep(req.Step); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func (h *WizardHandler) readiness(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, dto.ReadinessDTO(s.Readiness()))
}

func (h *WizardHandler) saveNow(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if err := s.SaveNow(r.Context()); err != nil {
		http.Error(w, "Save failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

func (h *WizardHandler) publish(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req dto.PublishDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.Publish(r.Context(), req.Published); err != nil {
		var precondition wizard.PublishPreconditionError
		if errors.As(err, &precondition) {
			http.Error(w, err.Error(), http.StatusPreconditionFailed)
			return
		}
		http.Error(w, "Publish failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeState(w, http.StatusOK, s)
}

// finish completes the wizard: forced save plus a publish call when the
// published flag changed since load.
func (h *WizardHandler) finish(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if err := s.Finish(r.Context()); err != nil {
		http.Error(w, "Finish failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeState(w, http.StatusOK, s)
}
