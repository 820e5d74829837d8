package ws

import (
	"encoding/json"
	"time"

	"github.com/medsim-planet/session-service/internal/domain"
)

// Входящие события
const (
	EventJoinCode            = "join-code"
	EventLeaveCode           = "leave-code"
	EventExaminerSubscribe   = "examiner-subscribe"
	EventExaminerUnsubscribe = "examiner-unsubscribe"
	EventAudioCommand        = "audio-command"
	EventStudentAudio        = "student-audio-command"
	EventServerAudio         = "server-audio-command"
)

// Исходящие события
const (
	EventJoinedCode           = "joined-code"
	EventStudentListUpdate    = "student-list-update"
	EventStudentSessionUpdate = "student-session-update"
	EventStudentLeft          = "student-left"
	EventSessionUpdated       = "session-updated"
	EventSessionDeleted       = "session-deleted"
	EventExaminerSubscribed   = "examiner-subscribed"
	EventRateLimitExceeded    = "rate-limit-exceeded"
)

type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// inbound — сырой конверт из read loop; payload декодируется обработчиком.
type inbound struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type JoinCodePayload struct {
	Code        string `json:"code" validate:"required,numeric,len=6"`
	Name        string `json:"name" validate:"required,max=100"`
	Surname     string `json:"surname" validate:"required,max=100"`
	AlbumNumber string `json:"albumNumber" validate:"required,max=32"`
}

type JoinedCodePayload struct {
	Success         bool   `json:"success"`
	Code            string `json:"code,omitempty"`
	SessionID       int64  `json:"sessionId,omitempty"`
	IsDisplayHidden bool   `json:"isDisplayHidden,omitempty"`
	Error           string `json:"error,omitempty"`
}

type ExaminerSubscribePayload struct {
	SessionCode string `json:"sessionCode" validate:"required"`
	UserID      int64  `json:"userId" validate:"required"`
	Token       string `json:"token" validate:"required"`
}

type ExaminerSubscribedPayload struct {
	Success     bool   `json:"success"`
	SessionCode string `json:"sessionCode,omitempty"`
	Error       string `json:"error,omitempty"`
}

type AudioCommandPayload struct {
	Code      string `json:"code"`
	Command   string `json:"command"`
	SoundName string `json:"soundName,omitempty"`
	Loop      bool   `json:"loop,omitempty"`
}

type StudentAudioCommandPayload struct {
	StudentID int64  `json:"studentId"`
	Command   string `json:"command"`
	SoundName string `json:"soundName,omitempty"`
	Loop      bool   `json:"loop,omitempty"`
}

type ServerAudioCommandPayload struct {
	Code    string `json:"code"`
	Command string `json:"command"`
	AudioID int64  `json:"audioId,omitempty"` // не нужен для stop
	Loop    bool   `json:"loop,omitempty"`
}

type StudentItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	AlbumNumber string `json:"albumNumber"`
}

type StudentListUpdatePayload struct {
	SessionID   int64         `json:"sessionId"`
	SessionCode string        `json:"sessionCode"`
	Students    []StudentItem `json:"students"`
}

type StudentSessionUpdatePayload struct {
	Type        string      `json:"type"` // join|leave
	SessionID   int64       `json:"sessionId"`
	SessionCode string      `json:"sessionCode"`
	Student     StudentItem `json:"student"`
	Timestamp   time.Time   `json:"timestamp"`
}

type StudentLeftPayload struct {
	StudentID int64 `json:"studentId"`
	SessionID int64 `json:"sessionId"`
}

type RateLimitPayload struct {
	Event string `json:"event"`
}

type SessionStatePayload struct {
	SessionID       int64     `json:"sessionId"`
	SessionCode     string    `json:"sessionCode"`
	Name            string    `json:"name"`
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
	UpdatedAt       time.Time `json:"updatedAt"`
}

func sessionState(s *domain.Session) SessionStatePayload {
	return SessionStatePayload{
		SessionID:       s.ID,
		SessionCode:     s.Code,
		Name:            s.Name,
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
		UpdatedAt:       s.UpdatedAt,
	}
}

func studentItem(s domain.Student) StudentItem {
	return StudentItem{
		ID:          s.ID,
		Name:        s.Name,
		Surname:     s.Surname,
		AlbumNumber: s.AlbumNumber,
	}
}
