package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/medsim-planet/session-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

type SessionStore interface {
	GetByCode(ctx context.Context, code string) (*domain.Session, error)
}

type StudentStore interface {
	Upsert(ctx context.Context, name, surname, albumNumber string) (*domain.Student, error)
	Get(ctx context.Context, id int64) (*domain.Student, error)
}

type MembershipStore interface {
	Upsert(ctx context.Context, studentID, sessionID int64) (*domain.Membership, error)
	SetActive(ctx context.Context, studentID, sessionID int64, active bool) error
	BulkSetInactive(ctx context.Context, sessionID int64, studentIDs []int64) error
	ListActive(ctx context.Context, sessionID int64) ([]domain.ActiveMember, error)
}

type TokenVerifier interface {
	Verify(token string) (int64, error)
}

type handlerFunc func(ctx context.Context, c Conn, payload json.RawMessage)

// Coordinator обрабатывает входящие события соединений: join/leave,
// подписки экзаменатора, аудио-команды и ungraceful disconnect.
// Registry мутируется только отсюда; персистентные строки membership пишутся
// оптимистично — ошибка записи логируется, реестр всё равно обновляется,
// расхождение закроет следующая сверка.
type Coordinator struct {
	reg         *Registry
	router      *Router
	limiter     *RateLimiter
	sessions    SessionStore
	students    StudentStore
	memberships MembershipStore
	verifier    TokenVerifier

	handlers map[string]handlerFunc
}

func NewCoordinator(
	reg *Registry,
	router *Router,
	limiter *RateLimiter,
	sessions SessionStore,
	students StudentStore,
	memberships MembershipStore,
	verifier TokenVerifier,
) *Coordinator {
	co := &Coordinator{
		reg:         reg,
		router:      router,
		limiter:     limiter,
		sessions:    sessions,
		students:    students,
		memberships: memberships,
		verifier:    verifier,
	}
	co.handlers = map[string]handlerFunc{
		EventJoinCode:            co.handleJoin,
		EventLeaveCode:           co.handleLeave,
		EventExaminerSubscribe:   co.handleExaminerSubscribe,
		EventExaminerUnsubscribe: co.handleExaminerUnsubscribe,
		EventAudioCommand:        co.handleAudioCommand,
		EventStudentAudio:        co.handleStudentAudioCommand,
		EventServerAudio:         co.handleServerAudioCommand,
	}
	return co
}

// Dispatch — единая точка входа для read loop-а: rate-limit gate,
// затем lookup по таблице обработчиков. Неизвестные события игнорируются.
func (co *Coordinator) Dispatch(ctx context.Context, c Conn, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	h, ok := co.handlers[msg.Event]
	if !ok {
		return
	}
	if !co.limiter.Allow(c.ID(), msg.Event) {
		_ = c.Send(Message{Event: EventRateLimitExceeded, Payload: RateLimitPayload{Event: msg.Event}})
		return
	}
	h(ctx, c, msg.Payload)
}

func (co *Coordinator) handleJoin(ctx context.Context, c Conn, raw json.RawMessage) {
	var p JoinCodePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		co.replyJoinFailure(c, "invalid payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		co.replyJoinFailure(c, "invalid payload")
		return
	}

	sess, err := co.sessions.GetByCode(ctx, p.Code)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			co.replyJoinFailure(c, "session not found")
			return
		}
		slog.Error("join: session lookup failed", "code", p.Code, "err", err)
		co.replyJoinFailure(c, "internal error")
		return
	}
	if !sess.IsActive {
		co.replyJoinFailure(c, domain.ErrSessionInactive.Error())
		return
	}

	student, err := co.students.Upsert(ctx, p.Name, p.Surname, p.AlbumNumber)
	if err != nil {
		slog.Error("join: student upsert failed", "album", p.AlbumNumber, "err", err)
		co.replyJoinFailure(c, "internal error")
		return
	}

	if _, err := co.memberships.Upsert(ctx, student.ID, sess.ID); err != nil {
		// presence оптимистична: реестр обновляем, строку починит сверка
		slog.Error("join: membership upsert failed",
			"student", student.ID, "session", sess.ID, "err", err)
	}

	prev := co.reg.AttachStudent(c.ID(), StudentIdentity{
		StudentID: student.ID,
		SessionID: sess.ID,
		Code:      sess.Code,
	})
	if prev != nil && prev.Code != sess.Code {
		co.cleanupStudent(ctx, c.ID(), *prev, false)
	}

	co.reg.JoinRoom(c.ID(), SessionRoom(sess.Code))
	co.reg.JoinRoom(c.ID(), ParticipantRoom(student.ID))

	co.router.Emit(ExaminerRoom(sess.Code), EventStudentSessionUpdate, StudentSessionUpdatePayload{
		Type:        "join",
		SessionID:   sess.ID,
		SessionCode: sess.Code,
		Student:     studentItem(*student),
		Timestamp:   time.Now(),
	})

	_ = c.Send(Message{Event: EventJoinedCode, Payload: JoinedCodePayload{
		Success:         true,
		Code:            sess.Code,
		SessionID:       sess.ID,
		IsDisplayHidden: sess.IsDisplayHidden,
	}})
}

func (co *Coordinator) replyJoinFailure(c Conn, reason string) {
	_ = c.Send(Message{Event: EventJoinedCode, Payload: JoinedCodePayload{
		Success: false,
		Error:   reason,
	}})
}

func (co *Coordinator) handleLeave(ctx context.Context, c Conn, _ json.RawMessage) {
	id := co.reg.DetachStudent(c.ID())
	if id == nil {
		return
	}
	co.cleanupStudent(ctx, c.ID(), *id, false)
}

// Disconnect — ungraceful cleanup по последней известной identity.
// В отличие от явного leave, уведомляется и сама комната сессии: остальные
// участники не должны ждать следующей сверки.
func (co *Coordinator) Disconnect(ctx context.Context, c Conn) {
	st, _ := co.reg.Remove(c.ID())
	co.limiter.RemoveConn(c.ID())
	if st != nil {
		co.cleanupStudent(ctx, c.ID(), *st, true)
	}
}

func (co *Coordinator) cleanupStudent(ctx context.Context, connID string, id StudentIdentity, disconnected bool) {
	co.reg.LeaveRoom(connID, SessionRoom(id.Code))
	co.reg.LeaveRoom(connID, ParticipantRoom(id.StudentID))

	if err := co.memberships.SetActive(ctx, id.StudentID, id.SessionID, false); err != nil &&
		!errors.Is(err, domain.ErrNotInSession) {
		slog.Error("cleanup: membership deactivate failed",
			"student", id.StudentID, "session", id.SessionID, "err", err)
	}

	item := StudentItem{ID: id.StudentID}
	if student, err := co.students.Get(ctx, id.StudentID); err == nil {
		item = studentItem(*student)
	}
	co.router.Emit(ExaminerRoom(id.Code), EventStudentSessionUpdate, StudentSessionUpdatePayload{
		Type:        "leave",
		SessionID:   id.SessionID,
		SessionCode: id.Code,
		Student:     item,
		Timestamp:   time.Now(),
	})

	if disconnected {
		co.router.EmitSessionUpdate(EventStudentLeft, StudentLeftPayload{
			StudentID: id.StudentID,
			SessionID: id.SessionID,
		}, SessionRoom(id.Code))
	}
}

func (co *Coordinator) handleExaminerSubscribe(ctx context.Context, c Conn, raw json.RawMessage) {
	var p ExaminerSubscribePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		co.replySubscribeFailure(c, "invalid payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		co.replySubscribeFailure(c, "invalid payload")
		return
	}

	uid, err := co.verifier.Verify(p.Token)
	if err != nil || uid != p.UserID {
		co.replySubscribeFailure(c, "invalid token")
		return
	}

	sess, err := co.sessions.GetByCode(ctx, p.SessionCode)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			co.replySubscribeFailure(c, "session not found")
			return
		}
		slog.Error("examiner-subscribe: session lookup failed", "code", p.SessionCode, "err", err)
		co.replySubscribeFailure(c, "internal error")
		return
	}

	co.reg.AttachExaminer(c.ID(), ExaminerIdentity{Code: sess.Code, UserID: uid})
	co.reg.JoinRoom(c.ID(), ExaminerRoom(sess.Code))

	_ = c.Send(Message{Event: EventExaminerSubscribed, Payload: ExaminerSubscribedPayload{
		Success:     true,
		SessionCode: sess.Code,
	}})

	// срез из персистентных строк, не из реестра: экзаменатору нужна
	// durable-правда на момент подписки
	co.pushRoster(ctx, c, sess)
}

func (co *Coordinator) replySubscribeFailure(c Conn, reason string) {
	_ = c.Send(Message{Event: EventExaminerSubscribed, Payload: ExaminerSubscribedPayload{
		Success: false,
		Error:   reason,
	}})
}

func (co *Coordinator) pushRoster(ctx context.Context, c Conn, sess *domain.Session) {
	members, err := co.memberships.ListActive(ctx, sess.ID)
	if err != nil {
		slog.Error("roster: list active failed", "session", sess.ID, "err", err)
		return
	}
	_ = c.Send(Message{Event: EventStudentListUpdate, Payload: StudentListUpdatePayload{
		SessionID:   sess.ID,
		SessionCode: sess.Code,
		Students: lo.Map(members, func(m domain.ActiveMember, _ int) StudentItem {
			return studentItem(m.Student)
		}),
	}})
}

func (co *Coordinator) handleExaminerUnsubscribe(_ context.Context, c Conn, _ json.RawMessage) {
	if prev := co.reg.DetachExaminer(c.ID()); prev != nil {
		co.reg.LeaveRoom(c.ID(), ExaminerRoom(prev.Code))
	}
}

func (co *Coordinator) handleAudioCommand(_ context.Context, c Conn, raw json.RawMessage) {
	var p AudioCommandPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Code == "" || p.Command == "" {
		return
	}
	co.router.Emit(SessionRoom(p.Code), EventAudioCommand, p)
}

func (co *Coordinator) handleStudentAudioCommand(_ context.Context, c Conn, raw json.RawMessage) {
	var p StudentAudioCommandPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.StudentID == 0 || p.Command == "" {
		return
	}
	co.router.Emit(ParticipantRoom(p.StudentID), EventStudentAudio, p)
}

func (co *Coordinator) handleServerAudioCommand(_ context.Context, c Conn, raw json.RawMessage) {
	var p ServerAudioCommandPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Code == "" || p.Command == "" {
		return
	}
	// stop не несёт audioId — просто транслируем команду как есть
	co.router.Emit(SessionRoom(p.Code), EventServerAudio, p)
}

// SessionUpdated рассылается комнате сессии после изменения её параметров
// (алиас session-update-<code> и зеркало в all-sessions включительно).
func (co *Coordinator) SessionUpdated(s *domain.Session) {
	co.router.EmitSessionUpdate(EventSessionUpdated, sessionState(s), SessionRoom(s.Code))
}

// SessionDeleted гасит сессию: фан-аут session-deleted, деактивация строк
// membership всех соединений с identity этой сессии и их выселение из комнат.
func (co *Coordinator) SessionDeleted(ctx context.Context, code string, sessionID int64) {
	co.router.EmitSessionUpdate(EventSessionDeleted, struct{}{}, SessionRoom(code))

	ids := co.reg.EvictSession(code)
	if err := co.memberships.BulkSetInactive(ctx, sessionID, ids); err != nil {
		slog.Error("session-deleted: bulk deactivate failed",
			"session", sessionID, "err", err)
	}
}

// StudentRemoved — принудительное удаление студента экзаменатором.
func (co *Coordinator) StudentRemoved(ctx context.Context, code string, sessionID, studentID int64) {
	co.reg.EvictStudent(code, studentID)
	co.router.EmitSessionUpdate(EventStudentLeft, StudentLeftPayload{
		StudentID: studentID,
		SessionID: sessionID,
	}, SessionRoom(code))
}

// RosterChanged пушит актуальный срез студентов экзаменаторам сессии;
// вызывается после сверки, убравшей ghost-строки.
func (co *Coordinator) RosterChanged(ctx context.Context, sess *domain.Session) {
	members, err := co.memberships.ListActive(ctx, sess.ID)
	if err != nil {
		slog.Error("roster: list active failed", "session", sess.ID, "err", err)
		return
	}
	co.router.Emit(ExaminerRoom(sess.Code), EventStudentListUpdate, StudentListUpdatePayload{
		SessionID:   sess.ID,
		SessionCode: sess.Code,
		Students: lo.Map(members, func(m domain.ActiveMember, _ int) StudentItem {
			return studentItem(m.Student)
		}),
	})
}
