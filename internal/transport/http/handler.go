package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/medsim-planet/session-service/internal/domain"
	"github.com/medsim-planet/session-service/internal/postgres"
	"github.com/medsim-planet/session-service/internal/service"
	httpmw "github.com/medsim-planet/session-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

type Handler struct {
	sessionSvc  *service.SessionService
	presenceSvc *service.PresenceService
}

func NewHandler(session *service.SessionService, presence *service.PresenceService) *Handler {
	return &Handler{
		sessionSvc:  session,
		presenceSvc: presence,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req UpsertSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if req.SessionCode == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "name and sessionCode are required"})
		return
	}

	sess := req.toDomain()
	sess.OwnerID = httpmw.UserIDFromCtx(r.Context())
	sess.IsActive = req.IsActive == nil || *req.IsActive

	if err := h.sessionSvc.CreateSession(r.Context(), sess); err != nil {
		slog.Error("handler.CreateSession:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, sessionItem(sess))
}

// GET /sessions?limit=&cursor=
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	sessions, next, err := h.sessionSvc.ListByOwner(r.Context(), httpmw.UserIDFromCtx(r.Context()), limit, cursor)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.ListSessions:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ListSessionsResponse{
		Sessions: lo.Map(sessions, func(s domain.Session, _ int) SessionItem {
			return *sessionItem(&s)
		}),
		NextCursor: next,
	})
}

// GET /sessions/code/{code}/validate
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	valid, err := h.sessionSvc.ValidateCode(r.Context(), code)
	if err != nil {
		slog.Error("handler.ValidateCode:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ValidateCodeResponse{Valid: valid})
}

// GET /sessions/code/{code}/students
func (h *Handler) GetStudents(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	sess, members, err := h.sessionSvc.Roster(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
			return
		}
		slog.Error("handler.GetStudents:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, RosterResponse{
		SessionID:   sess.ID,
		SessionCode: sess.Code,
		Students: lo.Map(members, func(m domain.ActiveMember, _ int) StudentItem {
			return StudentItem{
				ID:          m.ID,
				Name:        m.Name,
				Surname:     m.Surname,
				AlbumNumber: m.AlbumNumber,
				JoinedAt:    m.JoinedAt,
			}
		}),
	})
}

// PATCH /sessions/{id}
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	var req UpsertSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	sess, err := h.sessionSvc.GetByCode(r.Context(), req.SessionCode)
	if err != nil || sess.ID != id {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}
	req.applyTo(sess)
	if req.IsActive != nil {
		sess.IsActive = *req.IsActive
	}

	if err := h.sessionSvc.UpdateSession(r.Context(), sess); err != nil {
		slog.Error("handler.UpdateSession:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessionItem(sess))
}

// POST /sessions/code/{code}/deactivate
func (h *Handler) DeactivateSession(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.sessionSvc.DeactivateSession(r.Context(), code); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
			return
		}
		slog.Error("handler.DeactivateSession:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "session deactivated"})
}

// POST /sessions/code/{code}/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	report, err := h.presenceSvc.Reconcile(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
			return
		}
		slog.Error("handler.Reconcile:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DELETE /sessions/{id}/students/{studentId}
func (h *Handler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid student id"})
		return
	}

	if err := h.sessionSvc.RemoveStudent(r.Context(), sessionID, studentID); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
		case errors.Is(err, domain.ErrNotInSession):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "student not in session"})
		default:
			slog.Error("handler.RemoveStudent:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "student removed from session"})
}

// --- DTO ---

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidateCodeResponse struct {
	Valid bool `json:"valid"`
}

type UpsertSessionRequest struct {
	Name            string  `json:"name"`
	SessionCode     string  `json:"sessionCode"`
	IsActive        *bool   `json:"isActive,omitempty"`
	IsDisplayHidden bool    `json:"isDisplayHidden"`
	Temperature     float64 `json:"temperature"`
	RhythmType      int16   `json:"rhythmType"`
	BeatsPerMinute  int     `json:"beatsPerMinute"`
	NoiseLevel      int     `json:"noiseLevel"`
	BP              string  `json:"bp"`
	SpO2            string  `json:"spo2"`
	EtCO2           string  `json:"etco2"`
	RR              string  `json:"rr"`
}

func (r UpsertSessionRequest) toDomain() *domain.Session {
	s := &domain.Session{Code: r.SessionCode}
	r.applyTo(s)
	return s
}

func (r UpsertSessionRequest) applyTo(s *domain.Session) {
	s.Name = r.Name
	s.IsDisplayHidden = r.IsDisplayHidden
	s.Temperature = r.Temperature
	s.RhythmType = r.RhythmType
	s.BeatsPerMinute = r.BeatsPerMinute
	s.NoiseLevel = r.NoiseLevel
	s.BP = r.BP
	s.SpO2 = r.SpO2
	s.EtCO2 = r.EtCO2
	s.RR = r.RR
}

type SessionItem struct {
	SessionID       int64     `json:"sessionId"`
	Name            string    `json:"name"`
	SessionCode     string    `json:"sessionCode"`
	IsActive        bool      `json:"isActive"`
	IsDisplayHidden bool      `json:"isDisplayHidden"`
	Temperature     float64   `json:"temperature"`
	RhythmType      int16     `json:"rhythmType"`
	BeatsPerMinute  int       `json:"beatsPerMinute"`
	NoiseLevel      int       `json:"noiseLevel"`
	BP              string    `json:"bp"`
	SpO2            string    `json:"spo2"`
	EtCO2           string    `json:"etco2"`
	RR              string    `json:"rr"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func sessionItem(s *domain.Session) *SessionItem {
	return &SessionItem{
		SessionID:       s.ID,
		Name:            s.Name,
		SessionCode:     s.Code,
		IsActive:        s.IsActive,
		IsDisplayHidden: s.IsDisplayHidden,
		Temperature:     s.Temperature,
		RhythmType:      s.RhythmType,
		BeatsPerMinute:  s.BeatsPerMinute,
		NoiseLevel:      s.NoiseLevel,
		BP:              s.BP,
		SpO2:            s.SpO2,
		EtCO2:           s.EtCO2,
		RR:              s.RR,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type ListSessionsResponse struct {
	Sessions   []SessionItem `json:"sessions"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type StudentItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	AlbumNumber string    `json:"albumNumber"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type RosterResponse struct {
	SessionID   int64         `json:"sessionId"`
	SessionCode string        `json:"sessionCode"`
	Students    []StudentItem `json:"students"`
}
