package service

import (
	"context"
	"testing"
	"time"

	"github.com/medsim-planet/session-service/internal/domain"

	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	byCode map[string]*domain.Session
}

func (s *stubSessions) GetByCode(_ context.Context, code string) (*domain.Session, error) {
	sess, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *stubSessions) ListActiveCodes(context.Context) ([]string, error) {
	var codes []string
	for code, sess := range s.byCode {
		if sess.IsActive {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

type stubMemberships struct {
	active      map[int64][]domain.ActiveMember // sessionID -> members
	deactivated map[int64][]int64
}

func (s *stubMemberships) ListActive(_ context.Context, sessionID int64) ([]domain.ActiveMember, error) {
	return s.active[sessionID], nil
}

func (s *stubMemberships) BulkSetInactive(_ context.Context, sessionID int64, studentIDs []int64) error {
	s.deactivated[sessionID] = append(s.deactivated[sessionID], studentIDs...)
	kept := s.active[sessionID][:0]
	for _, m := range s.active[sessionID] {
		found := false
		for _, id := range studentIDs {
			if m.ID == id {
				found = true
				break
			}
		}
		if !found {
			kept = append(kept, m)
		}
	}
	s.active[sessionID] = kept
	return nil
}

type stubLive struct {
	ids map[string][]int64
}

func (s *stubLive) ConnectedStudentIDs(code string) []int64 { return s.ids[code] }

type stubNotifier struct {
	calls []string
}

func (s *stubNotifier) RosterChanged(_ context.Context, sess *domain.Session) {
	s.calls = append(s.calls, sess.Code)
}

func member(id int64, joinedAt time.Time) domain.ActiveMember {
	return domain.ActiveMember{
		Student:  domain.Student{ID: id, Name: "Jan", Surname: "Kowalski"},
		JoinedAt: joinedAt,
	}
}

func TestPresence_Reconcile_RemovesGhosts(t *testing.T) {
	req := require.New(t)

	now := time.Now()
	old := now.Add(-5 * time.Minute)

	sessions := &stubSessions{byCode: map[string]*domain.Session{
		"123456": {ID: 1, Code: "123456", IsActive: true},
	}}
	memberships := &stubMemberships{
		active: map[int64][]domain.ActiveMember{
			1: {member(10, old), member(11, old), member(12, old)},
		},
		deactivated: map[int64][]int64{},
	}
	live := &stubLive{ids: map[string][]int64{"123456": {10}}}
	notifier := &stubNotifier{}

	svc := NewPresenceService(sessions, memberships, live, 30*time.Second)
	svc.SetNotifier(notifier)
	svc.now = func() time.Time { return now }

	report, err := svc.Reconcile(context.Background(), "123456")
	req.NoError(err)
	req.Equal(1, report.Connected)
	req.Equal(2, report.GhostsRemoved)
	req.ElementsMatch([]int64{11, 12}, memberships.deactivated[1])
	req.Equal([]string{"123456"}, notifier.calls)

	// повторная сверка сходится: ghost-ов больше нет
	report, err = svc.Reconcile(context.Background(), "123456")
	req.NoError(err)
	req.Equal(0, report.GhostsRemoved)
	req.Len(notifier.calls, 1)
}

func TestPresence_Reconcile_GraceWindowSkipsFreshRows(t *testing.T) {
	req := require.New(t)

	now := time.Now()
	sessions := &stubSessions{byCode: map[string]*domain.Session{
		"123456": {ID: 1, Code: "123456", IsActive: true},
	}}
	memberships := &stubMemberships{
		active: map[int64][]domain.ActiveMember{
			// строка свежее grace window: join мог ещё не довести
			// соединение до комнаты
			1: {member(10, now.Add(-10 * time.Second))},
		},
		deactivated: map[int64][]int64{},
	}
	live := &stubLive{ids: map[string][]int64{}}

	svc := NewPresenceService(sessions, memberships, live, 30*time.Second)
	svc.now = func() time.Time { return now }

	report, err := svc.Reconcile(context.Background(), "123456")
	req.NoError(err)
	req.Equal(0, report.GhostsRemoved)
	req.Empty(memberships.deactivated[1])

	// та же строка после истечения окна — уже ghost
	svc.now = func() time.Time { return now.Add(time.Minute) }
	report, err = svc.Reconcile(context.Background(), "123456")
	req.NoError(err)
	req.Equal(1, report.GhostsRemoved)
}

func TestPresence_Reconcile_NoGhostsNoNotify(t *testing.T) {
	req := require.New(t)

	now := time.Now()
	old := now.Add(-time.Hour)
	sessions := &stubSessions{byCode: map[string]*domain.Session{
		"123456": {ID: 1, Code: "123456", IsActive: true},
	}}
	memberships := &stubMemberships{
		active:      map[int64][]domain.ActiveMember{1: {member(10, old)}},
		deactivated: map[int64][]int64{},
	}
	live := &stubLive{ids: map[string][]int64{"123456": {10}}}
	notifier := &stubNotifier{}

	svc := NewPresenceService(sessions, memberships, live, 30*time.Second)
	svc.SetNotifier(notifier)
	svc.now = func() time.Time { return now }

	report, err := svc.Reconcile(context.Background(), "123456")
	req.NoError(err)
	req.Equal(1, report.Connected)
	req.Equal(0, report.GhostsRemoved)
	req.Empty(notifier.calls)
}

func TestPresence_Reconcile_SessionNotFound(t *testing.T) {
	svc := NewPresenceService(
		&stubSessions{byCode: map[string]*domain.Session{}},
		&stubMemberships{deactivated: map[int64][]int64{}},
		&stubLive{},
		30*time.Second,
	)

	_, err := svc.Reconcile(context.Background(), "000000")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
