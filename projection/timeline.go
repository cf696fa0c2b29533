// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and projections.
// Does not emit events or interact with UI directly.
package projection

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"sort"

	"github.com/samber/lo"
)

const DefaultMaxPending = 256

// Timeline is the local view of one room, ordered by creation time then id.
// Updates for messages not seen yet wait in a bounded queue and are replayed
// once the message arrives, from a live event or a history page.
type Timeline struct {
	RoomID     domain.RoomID
	messages   []domain.Message
	index      map[domain.MessageID]int
	pending    map[domain.MessageID][]event.ServerEvent
	order      []domain.MessageID
	maxPending int
}

func NewTimeline(roomID domain.RoomID, maxPending int) *Timeline {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Timeline{
		RoomID:     roomID,
		index:      make(map[domain.MessageID]int),
		pending:    make(map[domain.MessageID][]event.ServerEvent),
		maxPending: maxPending,
	}
}

// Apply reconciles a room event into the timeline.
func (t *Timeline) Apply(e event.ServerEvent) {
	switch evt := e.(type) {
	case event.MessageCreated:
		t.upsert(evt.Message)
	case event.MessageEdited:
		t.update(evt.Message.ID, e, func(*domain.Message) domain.Message { return evt.Message })
	case event.MessageDeleted:
		t.update(evt.Message.ID, e, func(*domain.Message) domain.Message { return evt.Message })
	case event.ReactionChanged:
		t.update(evt.MessageID, e, func(current *domain.Message) domain.Message {
			next := *current
			next.Reactions = evt.Reactions
			next.UpdatedAt = evt.UpdatedAt
			return next
		})
	}
}

// Load merges a history page. Known messages are kept unless the page is newer.
func (t *Timeline) Load(messages []domain.Message) {
	for _, msg := range messages {
		t.upsert(msg)
	}
}

func (t *Timeline) Messages() []domain.Message {
	return append([]domain.Message(nil), t.messages...)
}

func (t *Timeline) Len() int { return len(t.messages) }

// Pending returns how many updates wait for their message.
func (t *Timeline) Pending() int {
	return lo.SumBy(lo.Values(t.pending), func(events []event.ServerEvent) int { return len(events) })
}

func (t *Timeline) upsert(msg domain.Message) {
	if i, ok := t.index[msg.ID]; ok {
		if !msg.UpdatedAt.Before(t.messages[i].UpdatedAt) {
			t.messages[i] = msg
		}
		return
	}
	t.messages = append(t.messages, msg)
	sort.SliceStable(t.messages, func(i, j int) bool {
		a, b := t.messages[i], t.messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	t.reindex()
	t.replay(msg.ID)
}

// update applies fn to a known message when the result is not older than the
// current record, and queues e otherwise.
func (t *Timeline) update(id domain.MessageID, e event.ServerEvent, fn func(current *domain.Message) domain.Message) {
	i, ok := t.index[id]
	if !ok {
		t.enqueue(id, e)
		return
	}
	next := fn(&t.messages[i])
	if next.UpdatedAt.Before(t.messages[i].UpdatedAt) {
		return
	}
	t.messages[i] = next
}

func (t *Timeline) enqueue(id domain.MessageID, e event.ServerEvent) {
	if _, ok := t.pending[id]; !ok {
		t.order = append(t.order, id)
	}
	t.pending[id] = append(t.pending[id], e)
	for t.Pending() > t.maxPending && len(t.order) > 0 {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.pending, oldest)
	}
}

func (t *Timeline) replay(id domain.MessageID) {
	events, ok := t.pending[id]
	if !ok {
		return
	}
	delete(t.pending, id)
	t.order = lo.Without(t.order, id)
	for _, e := range events {
		t.Apply(e)
	}
}

func (t *Timeline) reindex() {
	for i, msg := range t.messages {
		t.index[msg.ID] = i
	}
}
