package server

import (
	"errors"
	"slices"
)

// ErrDuplicateRegistration is returned when a session id is registered twice.
// It is fatal to that connection's session only.
var ErrDuplicateRegistration = errors.New("session already registered")

// session is the single owned record for one live connection. All per-connection
// state lives here, keyed by the connection's opaque session id.
type session struct {
	id       string
	username string
	// room is empty until the first join. A session belongs to at most one
	// room at any instant.
	room   string
	client *Client
}

// Registry tracks live sessions and room membership. Room member lists are kept
// in join order. It is not safe for concurrent use: the ChatServer serializes
// all access under a single mutex.
type Registry struct {
	sessions map[string]*session
	rooms    map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		rooms:    make(map[string][]string),
	}
}

// Register adds a connection with no username and no room.
func (r *Registry) Register(c *Client) error {
	if _, ok := r.sessions[c.sessionId]; ok {
		return ErrDuplicateRegistration
	}

	r.sessions[c.sessionId] = &session{id: c.sessionId, client: c}
	return nil
}

// SetIdentity records the username for a session, overwriting any previous
// value. Unknown sessions are ignored.
func (r *Registry) SetIdentity(id, username string) {
	if s, ok := r.sessions[id]; ok {
		s.username = username
	}
}

// Get returns the session record for id.
func (r *Registry) Get(id string) (*session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Deregister removes all trace of the session and returns the username and room
// held at removal time, both empty if the session never joined a room.
func (r *Registry) Deregister(id string) (username, lastRoom string) {
	s, ok := r.sessions[id]
	if !ok {
		return "", ""
	}

	username, lastRoom = s.username, s.room
	if lastRoom != "" {
		r.Leave(id, lastRoom)
	}
	delete(r.sessions, id)

	return username, lastRoom
}

// Join appends the session to the room's member list and updates the session's
// current room. The caller must have removed the session from any previous room
// first; joining a room the session is already a member of is a no-op. Reports
// whether the room was created by this join.
func (r *Registry) Join(id, room string) bool {
	s, ok := r.sessions[id]
	if !ok {
		return false
	}

	members, existed := r.rooms[room]
	if slices.Contains(members, id) {
		return false
	}

	r.rooms[room] = append(members, id)
	s.room = room
	return !existed
}

// Leave removes the session from the room's member list. Removing a non-member
// is a no-op. An emptied room is dropped from the index; Leave reports whether
// that happened.
func (r *Registry) Leave(id, room string) bool {
	members, ok := r.rooms[room]
	if !ok {
		return false
	}

	i := slices.Index(members, id)
	if i < 0 {
		return false
	}

	members = slices.Delete(members, i, i+1)
	if s, ok := r.sessions[id]; ok && s.room == room {
		s.room = ""
	}

	if len(members) == 0 {
		delete(r.rooms, room)
		return true
	}

	r.rooms[room] = members
	return false
}

// HasRoom reports whether the room currently has any members.
func (r *Registry) HasRoom(room string) bool {
	_, ok := r.rooms[room]
	return ok
}

// Members returns a snapshot of the room's member connections. Unknown or empty
// rooms yield an empty slice.
func (r *Registry) Members(room string) []*Client {
	ids := r.rooms[room]
	members := make([]*Client, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			members = append(members, s.client)
		}
	}
	return members
}

// Usernames returns the member usernames of the room in join order.
func (r *Registry) Usernames(room string) []string {
	ids := r.rooms[room]
	usernames := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			usernames = append(usernames, s.username)
		}
	}
	return usernames
}

// Clients returns a snapshot of every live session's connection.
func (r *Registry) Clients() []*Client {
	clients := make([]*Client, 0, len(r.sessions))
	for _, s := range r.sessions {
		clients = append(clients, s.client)
	}
	return clients
}

// NumSessions returns the number of live sessions.
func (r *Registry) NumSessions() int {
	return len(r.sessions)
}
