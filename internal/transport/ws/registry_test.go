package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id   string
	msgs []Message
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(msg Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) events(event string) []Message {
	var out []Message
	for _, m := range c.msgs {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func TestRegistry_JoinLeaveRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	c := newFakeConn()
	reg.Add(c)

	reg.JoinRoom(c.ID(), SessionRoom("123456"))
	req.Len(reg.connsInRoom(SessionRoom("123456")), 1)

	reg.LeaveRoom(c.ID(), SessionRoom("123456"))
	req.Empty(reg.connsInRoom(SessionRoom("123456")))

	// leave комнаты, в которой не состоим — no-op
	reg.LeaveRoom(c.ID(), SessionRoom("999999"))
}

func TestRegistry_AttachStudent_ReturnsPrevious(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	c := newFakeConn()
	reg.Add(c)

	prev := reg.AttachStudent(c.ID(), StudentIdentity{StudentID: 1, SessionID: 10, Code: "111111"})
	req.Nil(prev)

	prev = reg.AttachStudent(c.ID(), StudentIdentity{StudentID: 1, SessionID: 20, Code: "222222"})
	req.NotNil(prev)
	req.Equal("111111", prev.Code)

	st := reg.Student(c.ID())
	req.NotNil(st)
	req.Equal("222222", st.Code)
}

func TestRegistry_ConnectedStudentIDs(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	student := newFakeConn()
	reg.Add(student)
	reg.AttachStudent(student.ID(), StudentIdentity{StudentID: 7, SessionID: 1, Code: "123456"})
	reg.JoinRoom(student.ID(), SessionRoom("123456"))

	// экзаменатор в комнате сессии участием не считается
	examiner := newFakeConn()
	reg.Add(examiner)
	reg.AttachExaminer(examiner.ID(), ExaminerIdentity{Code: "123456", UserID: 99})
	reg.JoinRoom(examiner.ID(), SessionRoom("123456"))

	req.Equal([]int64{7}, reg.ConnectedStudentIDs("123456"))
	req.Empty(reg.ConnectedStudentIDs("654321"))
}

func TestRegistry_Remove_ReturnsIdentityAndClearsRooms(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	c := newFakeConn()
	reg.Add(c)
	reg.AttachStudent(c.ID(), StudentIdentity{StudentID: 3, SessionID: 1, Code: "123456"})
	reg.JoinRoom(c.ID(), SessionRoom("123456"))
	reg.JoinRoom(c.ID(), ParticipantRoom(3))

	st, ex := reg.Remove(c.ID())
	req.NotNil(st)
	req.Nil(ex)
	req.EqualValues(3, st.StudentID)
	req.Empty(reg.connsInRoom(SessionRoom("123456")))
	req.Empty(reg.connsInRoom(ParticipantRoom(3)))

	// повторный Remove — no-op
	st, ex = reg.Remove(c.ID())
	req.Nil(st)
	req.Nil(ex)
}

func TestRegistry_EvictSession(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	c1 := newFakeConn()
	reg.Add(c1)
	reg.AttachStudent(c1.ID(), StudentIdentity{StudentID: 1, SessionID: 5, Code: "123456"})
	reg.JoinRoom(c1.ID(), SessionRoom("123456"))
	reg.JoinRoom(c1.ID(), ParticipantRoom(1))

	c2 := newFakeConn()
	reg.Add(c2)
	reg.AttachStudent(c2.ID(), StudentIdentity{StudentID: 2, SessionID: 6, Code: "654321"})
	reg.JoinRoom(c2.ID(), SessionRoom("654321"))

	ids := reg.EvictSession("123456")
	req.ElementsMatch([]int64{1}, ids)
	req.Empty(reg.connsInRoom(SessionRoom("123456")))
	req.Nil(reg.Student(c1.ID()))

	// чужая сессия не затронута
	req.Len(reg.connsInRoom(SessionRoom("654321")), 1)
	req.NotNil(reg.Student(c2.ID()))
}
