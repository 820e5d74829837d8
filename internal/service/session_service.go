package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/medsim-planet/session-service/internal/domain"
	"github.com/medsim-planet/session-service/internal/postgres"
)

// Notifier — фан-аут в ws-движок; реализуется координатором.
type Notifier interface {
	SessionUpdated(s *domain.Session)
	SessionDeleted(ctx context.Context, code string, sessionID int64)
	StudentRemoved(ctx context.Context, code string, sessionID, studentID int64)
}

type SessionService struct {
	sessions    *postgres.SessionRepository
	memberships *postgres.MembershipRepository
	notifier    Notifier
}

func NewSessionService(
	sessions *postgres.SessionRepository,
	memberships *postgres.MembershipRepository,
	notifier Notifier,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		memberships: memberships,
		notifier:    notifier,
	}
}

func (s *SessionService) CreateSession(ctx context.Context, sess *domain.Session) error {
	if err := s.sessions.Create(ctx, sess); err != nil {
		return fmt.Errorf("sessions.Create: %w", err)
	}
	return nil
}

func (s *SessionService) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	return s.sessions.GetByCode(ctx, code)
}

func (s *SessionService) ListByOwner(ctx context.Context, ownerID int64, limit int, cursor string) ([]domain.Session, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	return s.sessions.ListByOwner(ctx, ownerID, limit, cursor)
}

// ValidateCode — быстрый ответ участнику перед join-ом.
func (s *SessionService) ValidateCode(ctx context.Context, code string) (bool, error) {
	sess, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return sess.IsActive, nil
}

// UpdateSession сохраняет изменения и рассылает session-updated комнате.
func (s *SessionService) UpdateSession(ctx context.Context, sess *domain.Session) error {
	if err := s.sessions.Update(ctx, sess); err != nil {
		return err
	}
	s.notifier.SessionUpdated(sess)
	return nil
}

// Roster — активные студенты сессии по её коду.
func (s *SessionService) Roster(ctx context.Context, code string) (*domain.Session, []domain.ActiveMember, error) {
	sess, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	members, err := s.memberships.ListActive(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, members, nil
}

// DeactivateSession гасит сессию и уведомляет всех подключённых.
func (s *SessionService) DeactivateSession(ctx context.Context, code string) error {
	sess, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if err := s.sessions.SetActive(ctx, code, false); err != nil {
		return err
	}
	s.notifier.SessionDeleted(ctx, sess.Code, sess.ID)
	return nil
}

// RemoveStudent деактивирует членство по инициативе экзаменатора.
func (s *SessionService) RemoveStudent(ctx context.Context, sessionID, studentID int64) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.memberships.SetActive(ctx, studentID, sessionID, false); err != nil {
		return err
	}
	s.notifier.StudentRemoved(ctx, sess.Code, sessionID, studentID)
	return nil
}
