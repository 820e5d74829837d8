package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter_Emit_TargetsOnlyRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	router := NewRouter(reg)

	inRoom := newFakeConn()
	reg.Add(inRoom)
	reg.JoinRoom(inRoom.ID(), SessionRoom("123456"))

	outside := newFakeConn()
	reg.Add(outside)

	router.Emit(SessionRoom("123456"), "audio-command", AudioCommandPayload{Code: "123456", Command: "play"})

	req.Len(inRoom.msgs, 1)
	req.Equal("audio-command", inRoom.msgs[0].Event)
	req.Empty(outside.msgs)
}

func TestRouter_EmitSessionUpdate_AliasAndMirror(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	router := NewRouter(reg)

	member := newFakeConn()
	reg.Add(member)
	reg.JoinRoom(member.ID(), SessionRoom("123456"))

	watcher := newFakeConn()
	reg.Add(watcher)
	reg.JoinRoom(watcher.ID(), RoomAllSessions)

	router.EmitSessionUpdate(EventSessionUpdated, SessionStatePayload{SessionCode: "123456"}, SessionRoom("123456"))

	// двойная доставка в комнату: событие + алиас
	req.Len(member.msgs, 2)
	req.Equal(EventSessionUpdated, member.msgs[0].Event)
	req.Equal("session-update-123456", member.msgs[1].Event)

	// зеркало в all-sessions с пометкой source
	req.Len(watcher.msgs, 1)
	mirrored, ok := watcher.msgs[0].Payload.(MirroredPayload)
	req.True(ok)
	req.Equal(SessionRoom("123456"), mirrored.Source)
}

func TestRouter_EmitSessionUpdate_NoRemirrorForAllSessions(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	router := NewRouter(reg)

	watcher := newFakeConn()
	reg.Add(watcher)
	reg.JoinRoom(watcher.ID(), RoomAllSessions)

	router.EmitSessionUpdate(EventSessionDeleted, struct{}{}, RoomAllSessions)

	// ровно одна доставка: ни алиаса, ни повторного зеркала
	req.Len(watcher.msgs, 1)
	req.Equal(EventSessionDeleted, watcher.msgs[0].Event)
}

func TestRouter_Broadcast_ReachesEveryConn(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	router := NewRouter(reg)

	a := newFakeConn()
	b := newFakeConn()
	reg.Add(a)
	reg.Add(b)
	reg.JoinRoom(a.ID(), SessionRoom("123456"))

	router.Broadcast("announcement", nil)

	req.Len(a.msgs, 1)
	req.Len(b.msgs, 1)
}
