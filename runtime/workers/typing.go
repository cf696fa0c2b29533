package workers

import (
	"chat-sync/domain"
	"sort"
	"time"
)

const DefaultTypingTimeout = 5 * time.Second

// TypingTracker keeps at most one typing expiry per identity for one room.
// It is owned by a RoomWorker and never touched from another goroutine.
// Expired entries are removed lazily by Prune, there is no background sweep.
type TypingTracker struct {
	timeout time.Duration
	now     func() time.Time
	expiry  map[domain.IdentityID]time.Time
}

func NewTypingTracker(timeout time.Duration, now func() time.Time) *TypingTracker {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingTracker{
		timeout: timeout,
		now:     now,
		expiry:  make(map[domain.IdentityID]time.Time),
	}
}

// Start sets or refreshes the expiry of identity.
// It returns true when the identity was not typing before.
func (t *TypingTracker) Start(identity domain.IdentityID) bool {
	_, typing := t.expiry[identity]
	t.expiry[identity] = t.now().Add(t.timeout)
	return !typing
}

// Stop clears the state of identity and reports whether there was one.
func (t *TypingTracker) Stop(identity domain.IdentityID) bool {
	if _, ok := t.expiry[identity]; !ok {
		return false
	}
	delete(t.expiry, identity)
	return true
}

// Prune removes every entry whose expiry is reached and returns their identities.
func (t *TypingTracker) Prune() []domain.IdentityID {
	now := t.now()
	var expired []domain.IdentityID
	for identity, at := range t.expiry {
		if !now.Before(at) {
			expired = append(expired, identity)
			delete(t.expiry, identity)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i] < expired[j] })
	return expired
}

// Active lists the identities still typing, sorted.
// Callers prune first.
func (t *TypingTracker) Active() []domain.IdentityID {
	active := make([]domain.IdentityID, 0, len(t.expiry))
	for identity := range t.expiry {
		active = append(active, identity)
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	return active
}

func (t *TypingTracker) Len() int {
	return len(t.expiry)
}
