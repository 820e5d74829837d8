package ws

import (
	"strconv"
	"strings"
)

// Грамматика ключей комнат.
const (
	roomSessionPrefix     = "session:"
	roomParticipantPrefix = "participant:"
	roomExaminerPrefix    = "examiner:"

	RoomAllSessions = "all-sessions"
)

func SessionRoom(code string) string { return roomSessionPrefix + code }

func ParticipantRoom(studentID int64) string {
	return roomParticipantPrefix + strconv.FormatInt(studentID, 10)
}

func ExaminerRoom(code string) string { return roomExaminerPrefix + code }

// sessionCodeFromRoom извлекает код из ключа session:<code>.
func sessionCodeFromRoom(room string) (string, bool) {
	code, ok := strings.CutPrefix(room, roomSessionPrefix)
	if !ok || code == "" {
		return "", false
	}
	return code, true
}

// MirroredPayload — событие сессии, отражённое в all-sessions;
// source указывает исходную комнату.
type MirroredPayload struct {
	Source string `json:"source"`
	Data   any    `json:"data"`
}

// Router рассылает события по комнатам. Доставка best-effort,
// без подтверждений (at-most-once).
type Router struct {
	reg *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

func (r *Router) Emit(room, event string, payload any) {
	for _, c := range r.reg.connsInRoom(room) {
		_ = c.Send(Message{Event: event, Payload: payload}) // best-effort
	}
}

// EmitSessionUpdate — как Emit, плюс обратная совместимость:
// в комнату session:<code> дублируется алиас session-update-<code>,
// а само событие зеркалируется в all-sessions с пометкой source.
// События, уже адресованные all-sessions, повторно не зеркалируются.
func (r *Router) EmitSessionUpdate(event string, payload any, room string) {
	r.Emit(room, event, payload)

	if code, ok := sessionCodeFromRoom(room); ok {
		r.Emit(room, "session-update-"+code, payload)
	}
	if room != RoomAllSessions {
		r.Emit(RoomAllSessions, event, MirroredPayload{Source: room, Data: payload})
	}
}

func (r *Router) Broadcast(event string, payload any) {
	for _, c := range r.reg.allConns() {
		_ = c.Send(Message{Event: event, Payload: payload})
	}
}
