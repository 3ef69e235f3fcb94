package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/chatterbox-im/chatterbox/internal/stats"
	"github.com/chatterbox-im/chatterbox/internal/types"
)

// DeliveryReport summarizes one broadcast fan-out. Failed counts members whose
// send buffer was full; a failure is never escalated to the caller.
type DeliveryReport struct {
	Delivered int
	Failed    int
}

// ChatServer owns the session registry, the room index, and the message store.
// A single mutex serializes every mutation of the three, which makes the
// compound operations (room switch, check-then-delete) atomic with respect to
// other connections.
type ChatServer struct {
	log   *log.Logger
	stats stats.StatsProvider

	mu       sync.Mutex
	registry *Registry
	store    *MessageStore
}

func NewChatServer(logger *log.Logger, statsProvider stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:      logger,
		stats:    statsProvider,
		registry: NewRegistry(),
		store:    NewMessageStore(),
	}

	for _, metric := range []string{
		"NumActiveClients",
		"NumActiveRooms",
		"NumMessages",
		"NumDeliveryFailures",
	} {
		cs.stats.RegisterMetric(metric)
	}

	return cs, nil
}

// RegisterClient adds a freshly accepted connection with no username and no
// room.
func (cs *ChatServer) RegisterClient(c *Client) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.registry.Register(c); err != nil {
		return err
	}

	cs.stats.Incr("NumActiveClients")
	return nil
}

// DeRegisterClient removes the connection from every structure and, if it held
// a room, announces the departure to the remaining members. Deregistering an
// unknown connection is a no-op.
func (cs *ChatServer) DeRegisterClient(c *Client) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.registry.Get(c.sessionId); !ok {
		return
	}

	username, room := cs.registry.Deregister(c.sessionId)
	cs.stats.Decr("NumActiveClients")
	if room == "" {
		return
	}

	if !cs.registry.HasRoom(room) {
		cs.stats.Decr("NumActiveRooms")
	}

	cs.broadcast(room, UserList(cs.registry.Usernames(room)))
	cs.broadcast(room, SystemNotice(leftNotice(username)))
}

// HandleEvent applies one inbound client event. Malformed events (unknown type
// or missing required fields) are dropped without terminating the session.
func (cs *ChatServer) HandleEvent(c *Client, ev *ClientEvent) {
	switch ev.Type {
	case EventJoin:
		if ev.Username == "" || ev.Room == "" {
			cs.log.Printf("dropping join event with missing fields from session %s", c.sessionId)
			return
		}
		cs.handleJoin(c, ev.Username, ev.Room)
	case EventChat:
		if ev.Message == nil {
			cs.log.Printf("dropping chat event without message from session %s", c.sessionId)
			return
		}
		cs.handleChat(c, *ev.Message)
	case EventMedia:
		if ev.Media == "" || ev.MediaType == "" {
			cs.log.Printf("dropping media event with missing fields from session %s", c.sessionId)
			return
		}
		cs.handleMedia(c, ev.Message, ev.Media, ev.MediaType)
	case EventDelete:
		if ev.MessageId == "" {
			cs.log.Printf("dropping delete event without message id from session %s", c.sessionId)
			return
		}
		cs.handleDeleteMessage(c, ev.MessageId)
	case EventTyping:
		cs.handleTyping(c, true)
	case EventStopTyping:
		cs.handleTyping(c, false)
	case EventSwitchRoom:
		if ev.Room == "" {
			cs.log.Printf("dropping switch_room event without room from session %s", c.sessionId)
			return
		}
		cs.handleSwitchRoom(c, ev.Room)
	default:
		cs.log.Printf("dropping event with unknown type %q from session %s", ev.Type, c.sessionId)
	}
}

// handleJoin sets the session's identity and room. A join on an already active
// session is an identity reset equivalent to leave-then-join: the old room is
// left (with departure broadcasts) before the new room is joined. Membership is
// never duplicated.
func (cs *ChatServer) handleJoin(c *Client, username, room string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	s, ok := cs.registry.Get(c.sessionId)
	if !ok {
		return
	}

	if old := s.room; old != "" && old != room {
		cs.leaveRoomLocked(c, s.username, old)
	}

	cs.registry.SetIdentity(c.sessionId, username)
	cs.joinRoomLocked(c, username, room)
}

func (cs *ChatServer) handleChat(c *Client, text string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	s, ok := cs.registry.Get(c.sessionId)
	if !ok || s.room == "" {
		return
	}

	msg := cs.store.Insert(s.username, s.room, types.MessageKindText, &text, nil)
	cs.stats.Incr("NumMessages")
	cs.broadcast(s.room, ChatEvent(msg))
}

func (cs *ChatServer) handleMedia(c *Client, caption *string, media, mediaType string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	s, ok := cs.registry.Get(c.sessionId)
	if !ok || s.room == "" {
		return
	}

	ref := &types.MediaRef{URL: media, MediaType: mediaType}
	msg := cs.store.Insert(s.username, s.room, types.MessageKindMedia, caption, ref)
	cs.stats.Incr("NumMessages")
	cs.broadcast(s.room, MediaEvent(msg))
}

// handleDeleteMessage removes a message iff the requester's current username
// equals the stored author. Unknown ids and author mismatches are silently
// ignored: no broadcast, no error to the requester.
func (cs *ChatServer) handleDeleteMessage(c *Client, messageId string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	s, ok := cs.registry.Get(c.sessionId)
	if !ok || s.room == "" {
		return
	}

	if !cs.store.Delete(messageId, s.username) {
		return
	}

	cs.stats.Decr("NumMessages")
	cs.broadcast(s.room, DeleteEvent(messageId))
}

func (cs *ChatServer) handleTyping(c *Client, active bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	s, ok := cs.registry.Get(c.sessionId)
	if !ok || s.room == "" {
		return
	}

	ev := TypingEvent(s.username)
	if !active {
		ev = StopTypingEvent(s.username)
	}
	cs.broadcast(s.room, ev)
}

// handleSwitchRoom atomically moves the session between rooms. Switching to the
// current room produces zero broadcasts. The leave and join happen inside one
// critical section, so no reader ever observes the session in zero or two
// rooms.
func (cs *ChatServer) handleSwitchRoom(c *Client, newRoom string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	s, ok := cs.registry.Get(c.sessionId)
	if !ok || s.room == "" || s.room == newRoom {
		return
	}

	username := s.username
	cs.leaveRoomLocked(c, username, s.room)
	cs.joinRoomLocked(c, username, newRoom)
}

// joinRoomLocked adds the session to the room and announces the arrival:
// presence list first, then the joined notice. Callers hold cs.mu.
func (cs *ChatServer) joinRoomLocked(c *Client, username, room string) {
	if created := cs.registry.Join(c.sessionId, room); created {
		cs.stats.Incr("NumActiveRooms")
	}

	cs.broadcast(room, UserList(cs.registry.Usernames(room)))
	cs.broadcast(room, SystemNotice(joinedNotice(username)))
}

// leaveRoomLocked removes the session from the room and announces the
// departure to the remaining members. Callers hold cs.mu.
func (cs *ChatServer) leaveRoomLocked(c *Client, username, room string) {
	if emptied := cs.registry.Leave(c.sessionId, room); emptied {
		cs.stats.Decr("NumActiveRooms")
	}

	cs.broadcast(room, UserList(cs.registry.Usernames(room)))
	cs.broadcast(room, SystemNotice(leftNotice(username)))
}

// broadcast delivers ev to every current member of the room. Callers hold
// cs.mu, so the member snapshot reflects membership exactly as of the
// triggering event. Delivery is a non-blocking push into each member's send
// buffer: a full buffer is counted and logged, never escalated, and never
// stalls delivery to the remaining members.
func (cs *ChatServer) broadcast(room string, ev *ServerEvent) DeliveryReport {
	var report DeliveryReport
	for _, member := range cs.registry.Members(room) {
		if member.queueMessage(ev) {
			report.Delivered++
			continue
		}

		report.Failed++
		cs.stats.Incr("NumDeliveryFailures")
		cs.log.Printf("dropped %s event for session %s in room %q: send buffer full", ev.Type, member.sessionId, room)
	}
	return report
}

// Shutdown signals every live connection to stop and waits for their sessions
// to drain from the registry.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.mu.Lock()
	clients := cs.registry.Clients()
	cs.mu.Unlock()

	cs.log.Printf("shutting down %d client(s)", len(clients))
	for _, c := range clients {
		c.stopClient()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		cs.mu.Lock()
		remaining := cs.registry.NumSessions()
		cs.mu.Unlock()
		if remaining == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
