package ws

import (
	"sync"
)

type Conn interface {
	ID() string
	Send(msg Message) error
	Close() error
}

// StudentIdentity привязывает соединение к участнику сессии.
type StudentIdentity struct {
	StudentID int64
	SessionID int64
	Code      string
}

// ExaminerIdentity привязывает соединение к экзаменатору.
type ExaminerIdentity struct {
	Code   string
	UserID int64
}

type connState struct {
	conn     Conn
	student  *StudentIdentity
	examiner *ExaminerIdentity
	rooms    map[string]struct{}
}

// Registry — авторитетное in-memory состояние: какие соединения живы,
// чья identity на них висит и в каких комнатах они состоят.
// Членство в комнате — всегда lookup, никогда не персистится.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connState
	rooms map[string]map[string]struct{} // room key -> set of conn ids
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connState),
		rooms: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Add(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.ID()] = &connState{
		conn:  c,
		rooms: make(map[string]struct{}),
	}
}

// AttachStudent заменяет identity на соединении и возвращает предыдущую,
// чтобы координатор выполнил leave-on-rejoin.
func (r *Registry) AttachStudent(connID string, id StudentIdentity) *StudentIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.conns[connID]
	if !ok {
		return nil
	}
	prev := st.student
	st.student = &id
	return prev
}

// DetachStudent снимает студенческую identity на явном leave;
// соединение остаётся живым.
func (r *Registry) DetachStudent(connID string) *StudentIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.conns[connID]
	if !ok {
		return nil
	}
	prev := st.student
	st.student = nil
	return prev
}

func (r *Registry) AttachExaminer(connID string, id ExaminerIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.conns[connID]; ok {
		st.examiner = &id
	}
}

func (r *Registry) DetachExaminer(connID string) *ExaminerIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.conns[connID]
	if !ok {
		return nil
	}
	prev := st.examiner
	st.examiner = nil
	return prev
}

func (r *Registry) Student(connID string) *StudentIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if st, ok := r.conns[connID]; ok {
		return st.student
	}
	return nil
}

func (r *Registry) JoinRoom(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.conns[connID]
	if !ok {
		return
	}
	st.rooms[room] = struct{}{}

	rs, ok := r.rooms[room]
	if !ok {
		rs = make(map[string]struct{})
		r.rooms[room] = rs
	}
	rs[connID] = struct{}{}
}

func (r *Registry) LeaveRoom(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveRoomLocked(connID, room)
}

func (r *Registry) leaveRoomLocked(connID, room string) {
	if st, ok := r.conns[connID]; ok {
		delete(st.rooms, room)
	}
	if rs, ok := r.rooms[room]; ok {
		delete(rs, connID)
		if len(rs) == 0 {
			delete(r.rooms, room)
		}
	}
}

// Remove снимает соединение с учёта и возвращает последнюю известную
// identity для cleanup-а на стороне координатора.
func (r *Registry) Remove(connID string) (*StudentIdentity, *ExaminerIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.conns[connID]
	if !ok {
		return nil, nil
	}
	for room := range st.rooms {
		if rs, ok := r.rooms[room]; ok {
			delete(rs, connID)
			if len(rs) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.conns, connID)
	return st.student, st.examiner
}

// ConnectedStudentIDs — живые участники сессии: соединения со студенческой
// identity, состоящие в комнате session:<code>.
func (r *Registry) ConnectedStudentIDs(code string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := SessionRoom(code)
	ids := make([]int64, 0)
	for connID := range r.rooms[room] {
		if st, ok := r.conns[connID]; ok && st.student != nil {
			ids = append(ids, st.student.StudentID)
		}
	}
	return ids
}

// TaggedStudents возвращает все студенческие identity с данным кодом сессии,
// независимо от членства в комнатах (для деактивации сессии).
func (r *Registry) TaggedStudents(code string) []StudentIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []StudentIdentity
	for _, st := range r.conns {
		if st.student != nil && st.student.Code == code {
			ids = append(ids, *st.student)
		}
	}
	return ids
}

// EvictSession выселяет из комнат все соединения с identity данной сессии,
// снимает identity и возвращает затронутые id студентов.
func (r *Registry) EvictSession(code string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []int64
	for connID, st := range r.conns {
		if st.student == nil || st.student.Code != code {
			continue
		}
		ids = append(ids, st.student.StudentID)
		r.leaveRoomLocked(connID, SessionRoom(code))
		r.leaveRoomLocked(connID, ParticipantRoom(st.student.StudentID))
		st.student = nil
	}
	return ids
}

// EvictStudent — то же для одного студента.
func (r *Registry) EvictStudent(code string, studentID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for connID, st := range r.conns {
		if st.student == nil || st.student.Code != code || st.student.StudentID != studentID {
			continue
		}
		r.leaveRoomLocked(connID, SessionRoom(code))
		r.leaveRoomLocked(connID, ParticipantRoom(studentID))
		st.student = nil
	}
}

func (r *Registry) connsInRoom(room string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.rooms[room]
	if !ok {
		return nil
	}
	out := make([]Conn, 0, len(rs))
	for connID := range rs {
		if st, ok := r.conns[connID]; ok {
			out = append(out, st.conn)
		}
	}
	return out
}

func (r *Registry) allConns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.conns))
	for _, st := range r.conns {
		out = append(out, st.conn)
	}
	return out
}
