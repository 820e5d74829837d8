package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medsim-planet/session-service/internal/domain"

	"github.com/samber/lo"
)

// ConnectedSource — read-only взгляд на реестр живых соединений.
type ConnectedSource interface {
	ConnectedStudentIDs(code string) []int64
}

type SessionSource interface {
	GetByCode(ctx context.Context, code string) (*domain.Session, error)
	ListActiveCodes(ctx context.Context) ([]string, error)
}

type MembershipSource interface {
	ListActive(ctx context.Context, sessionID int64) ([]domain.ActiveMember, error)
	BulkSetInactive(ctx context.Context, sessionID int64, studentIDs []int64) error
}

// RosterNotifier получает сигнал после сверки, изменившей состав сессии.
type RosterNotifier interface {
	RosterChanged(ctx context.Context, sess *domain.Session)
}

type Report struct {
	Connected     int `json:"connectedCount"`
	GhostsRemoved int `json:"ghostsRemoved"`
}

// PresenceService сверяет живое состояние реестра с персистентными строками
// membership и гасит ghost-строки (active=true без живого соединения).
// Сверка односторонняя: строки только деактивируются, создание — дело
// join-пути. Строка моложе graceWindow не считается ghost-ом: это защита
// от гонки со join-ом, который уже активировал строку, но ещё не успел
// завести соединение в комнату.
type PresenceService struct {
	sessions    SessionSource
	memberships MembershipSource
	live        ConnectedSource
	notifier    RosterNotifier // может быть nil

	graceWindow time.Duration
	now         func() time.Time
}

func NewPresenceService(
	sessions SessionSource,
	memberships MembershipSource,
	live ConnectedSource,
	graceWindow time.Duration,
) *PresenceService {
	if graceWindow < 0 {
		graceWindow = 0
	}
	return &PresenceService{
		sessions:    sessions,
		memberships: memberships,
		live:        live,
		graceWindow: graceWindow,
		now:         time.Now,
	}
}

func (s *PresenceService) SetNotifier(n RosterNotifier) {
	s.notifier = n
}

func (s *PresenceService) Reconcile(ctx context.Context, code string) (*Report, error) {
	sess, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("sessions.GetByCode: %w", err)
	}

	connected := s.live.ConnectedStudentIDs(code)
	connSet := lo.SliceToMap(connected, func(id int64) (int64, struct{}) {
		return id, struct{}{}
	})

	persisted, err := s.memberships.ListActive(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("memberships.ListActive: %w", err)
	}

	cutoff := s.now().Add(-s.graceWindow)
	ghosts := lo.FilterMap(persisted, func(m domain.ActiveMember, _ int) (int64, bool) {
		if _, ok := connSet[m.ID]; ok {
			return 0, false
		}
		if m.JoinedAt.After(cutoff) {
			return 0, false
		}
		return m.ID, true
	})

	if len(ghosts) > 0 {
		if err := s.memberships.BulkSetInactive(ctx, sess.ID, ghosts); err != nil {
			return nil, fmt.Errorf("memberships.BulkSetInactive: %w", err)
		}
		if s.notifier != nil {
			s.notifier.RosterChanged(ctx, sess)
		}
	}

	return &Report{
		Connected:     len(connected),
		GhostsRemoved: len(ghosts),
	}, nil
}
