package projection

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// DefaultTypingTimeout matches the server side expiry.
const DefaultTypingTimeout = 5 * time.Second

// State is everything a client knows about the server: presence,
// one timeline per room and who is typing where.
// A typing indicator is dropped locally once typingTimeout elapsed without a
// new typing_started, so a missed typing_stopped never sticks.
type State struct {
	mu            sync.RWMutex
	presence      map[domain.IdentityID]domain.Presence
	timelines     map[domain.RoomID]*Timeline
	typing        map[domain.RoomID]map[domain.IdentityID]time.Time
	maxPending    int
	typingTimeout time.Duration
	now           func() time.Time
}

func NewState(maxPending int, typingTimeout time.Duration) *State {
	if typingTimeout <= 0 {
		typingTimeout = DefaultTypingTimeout
	}
	return &State{
		presence:      make(map[domain.IdentityID]domain.Presence),
		timelines:     make(map[domain.RoomID]*Timeline),
		typing:        make(map[domain.RoomID]map[domain.IdentityID]time.Time),
		maxPending:    maxPending,
		typingTimeout: typingTimeout,
		now:           time.Now,
	}
}

// WithClock replaces the clock used for typing expiry.
func (s *State) WithClock(now func() time.Time) *State {
	s.now = now
	return s
}

// Consume reconciles one server event. Acks and errors carry no state.
func (s *State) Consume(_ context.Context, e event.ServerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch evt := e.(type) {
	case event.MessageCreated:
		s.timeline(evt.Message.RoomID).Apply(evt)
		s.stopTyping(evt.Message.RoomID, evt.Message.SenderID)
	case event.MessageEdited:
		s.timeline(evt.Message.RoomID).Apply(evt)
	case event.MessageDeleted:
		s.timeline(evt.Message.RoomID).Apply(evt)
	case event.ReactionChanged:
		s.timeline(evt.RoomID).Apply(evt)
	case event.PresenceOnline:
		p := s.presence[evt.Identity]
		s.presence[evt.Identity] = domain.Presence{Identity: evt.Identity, Online: true, LastSeenAt: p.LastSeenAt}
	case event.PresenceOffline:
		s.presence[evt.Identity] = domain.Presence{Identity: evt.Identity, LastSeenAt: lo.ToPtr(evt.LastSeenAt)}
		for room := range s.typing {
			s.stopTyping(room, evt.Identity)
		}
	case event.OnlineUsers:
		for identity, p := range s.presence {
			p.Online = false
			s.presence[identity] = p
		}
		for _, identity := range evt.Identities {
			p := s.presence[identity]
			s.presence[identity] = domain.Presence{Identity: identity, Online: true, LastSeenAt: p.LastSeenAt}
		}
	case event.TypingStarted:
		if s.typing[evt.RoomID] == nil {
			s.typing[evt.RoomID] = make(map[domain.IdentityID]time.Time)
		}
		s.typing[evt.RoomID][evt.Identity] = s.now()
	case event.TypingStopped:
		s.stopTyping(evt.RoomID, evt.Identity)
	case event.MemberLeft:
		s.stopTyping(evt.RoomID, evt.Identity)
	}
	return nil
}

// LoadHistory merges a page fetched over HTTP into the room timeline.
func (s *State) LoadHistory(roomID domain.RoomID, messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline(roomID).Load(messages)
}

// Forget drops the local view of a room the client left.
func (s *State) Forget(roomID domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timelines, roomID)
	delete(s.typing, roomID)
}

func (s *State) Timeline(roomID domain.RoomID) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timelines[roomID]
	if !ok {
		return nil
	}
	return t.Messages()
}

func (s *State) Pending(roomID domain.RoomID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timelines[roomID]
	if !ok {
		return 0
	}
	return t.Pending()
}

func (s *State) Presence(identity domain.IdentityID) (domain.Presence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presence[identity]
	return p, ok
}

func (s *State) Online() []domain.IdentityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	online := lo.Keys(lo.PickBy(s.presence, func(_ domain.IdentityID, p domain.Presence) bool { return p.Online }))
	sort.Slice(online, func(i, j int) bool { return online[i] < online[j] })
	return online
}

func (s *State) Typing(roomID domain.RoomID) []domain.IdentityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deadline := s.now().Add(-s.typingTimeout)
	typers := lo.Keys(lo.PickBy(s.typing[roomID], func(_ domain.IdentityID, since time.Time) bool {
		return since.After(deadline)
	}))
	sort.Slice(typers, func(i, j int) bool { return typers[i] < typers[j] })
	return typers
}

func (s *State) timeline(roomID domain.RoomID) *Timeline {
	t, ok := s.timelines[roomID]
	if !ok {
		t = NewTimeline(roomID, s.maxPending)
		s.timelines[roomID] = t
	}
	return t
}

func (s *State) stopTyping(roomID domain.RoomID, identity domain.IdentityID) {
	if typers, ok := s.typing[roomID]; ok {
		delete(typers, identity)
	}
}
