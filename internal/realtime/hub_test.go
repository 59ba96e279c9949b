package realtime_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trenches/ip-venue/internal/realtime"
)

// fakeSession records messages delivered to it
type fakeSession struct {
	id string

	mu       sync.Mutex
	messages []realtime.Message
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(msg realtime.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *fakeSession) received() []realtime.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]realtime.Message(nil), s.messages...)
}

func (s *fakeSession) events() []string {
	msgs := s.received()
	events := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, msg.Event)
	}
	return events
}

func TestHubRoomScopedDelivery(t *testing.T) {
	hub := realtime.NewHub()

	inRoom := newFakeSession("a")
	outside := newFakeSession("b")
	hub.Register(inRoom)
	hub.Register(outside)
	hub.Join(inRoom, "ip-42")

	hub.ToRoom("ip-42", realtime.Message{Event: "price"})

	assert.Equal(t, []string{"price"}, inRoom.events())
	assert.Empty(t, outside.received())
}

func TestHubGlobalDelivery(t *testing.T) {
	hub := realtime.NewHub()

	a := newFakeSession("a")
	b := newFakeSession("b")
	hub.Register(a)
	hub.Register(b)
	hub.Join(a, "ip-42")

	hub.ToAll(realtime.Message{Event: "ip-update"})

	// Global messages reach every connection, room membership or not
	assert.Equal(t, []string{"ip-update"}, a.events())
	assert.Equal(t, []string{"ip-update"}, b.events())
}

func TestHubLeaveStopsRoomDelivery(t *testing.T) {
	hub := realtime.NewHub()

	s := newFakeSession("a")
	hub.Register(s)
	hub.Join(s, "ip-42")
	hub.Leave(s, "ip-42")

	hub.ToRoom("ip-42", realtime.Message{Event: "price"})

	assert.Empty(t, s.received())
	assert.Equal(t, 0, hub.RoomSize("ip-42"))
}

func TestHubSessionMayJoinManyRooms(t *testing.T) {
	hub := realtime.NewHub()

	s := newFakeSession("a")
	hub.Register(s)
	hub.Join(s, "ip-1")
	hub.Join(s, "ip-2")

	hub.ToRoom("ip-1", realtime.Message{Event: "trade"})
	hub.ToRoom("ip-2", realtime.Message{Event: "trade"})

	assert.Len(t, s.received(), 2)
}

func TestHubUnregisterClearsMembership(t *testing.T) {
	hub := realtime.NewHub()

	s := newFakeSession("a")
	hub.Register(s)
	hub.Join(s, "ip-42")
	hub.Unregister(s)

	hub.ToRoom("ip-42", realtime.Message{Event: "price"})
	hub.ToAll(realtime.Message{Event: "ip-update"})

	assert.Empty(t, s.received())
	assert.Equal(t, 0, hub.Size())
	assert.Equal(t, 0, hub.RoomSize("ip-42"))
}

func TestHubJoinBeforeRegisterIsNoop(t *testing.T) {
	hub := realtime.NewHub()

	s := newFakeSession("a")
	hub.Join(s, "ip-42")

	assert.Equal(t, 0, hub.RoomSize("ip-42"))
}
