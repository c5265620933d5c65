// Package session holds the per-user client view of conversations and
// notifications, and reconciles it against events pushed on the user's
// channels.
package session

import (
	"time"

	"boardtalk/internal/entity"

	"github.com/google/uuid"
)

const provisionalPrefix = "temp-"

// Entry is one message as the client shows it. ClientId is set while the
// entry is, or started out as, a local provisional record.
type Entry struct {
	entity.Message
	ClientId string `json:"clientId,omitempty"`
	Pending  bool   `json:"isPending"`
	Error    string `json:"error,omitempty"`
}

func (e Entry) Failed() bool {
	return e.Error != ""
}

// State is an immutable snapshot. Every transition returns a new State and
// leaves the receiver untouched.
type State struct {
	SelfId          string
	OpenCounterpart string
	Messages        []Entry
	Unread          map[string]int
	Notifications   []entity.Notification

	// seen maps message ids counted outside the open view to their counterpart.
	seen map[string]string
}

func New(selfId string) State {
	return State{
		SelfId: selfId,
		Unread: map[string]int{},
		seen:   map[string]string{},
	}
}

func (s State) clone() State {
	next := s
	next.Messages = append([]Entry(nil), s.Messages...)
	next.Notifications = append([]entity.Notification(nil), s.Notifications...)
	next.Unread = make(map[string]int, len(s.Unread))
	for k, v := range s.Unread {
		next.Unread[k] = v
	}
	next.seen = make(map[string]string, len(s.seen))
	for k, v := range s.seen {
		next.seen[k] = v
	}
	return next
}

func (s State) counterpartOf(m entity.Message) string {
	if m.SenderId == s.SelfId {
		return m.RecipientId
	}
	return m.SenderId
}

func (s State) indexOf(messageId string) int {
	for i, e := range s.Messages {
		if e.Id == messageId {
			return i
		}
	}
	return -1
}

func (s State) indexOfProvisional(clientId string) int {
	for i, e := range s.Messages {
		if e.ClientId == clientId && e.Id == clientId {
			return i
		}
	}
	return -1
}

// TotalUnread sums the per-counterpart counters.
func (s State) TotalUnread() int {
	total := 0
	for _, n := range s.Unread {
		total += n
	}
	return total
}

func (s State) UnreadNotifications() int {
	n := 0
	for _, notification := range s.Notifications {
		if !notification.IsRead {
			n++
		}
	}
	return n
}

// OpenConversation replaces the message view with a freshly fetched history
// and clears that counterpart's unread counter. Ids seen for the counterpart
// before this history was loaded are forgotten, so a later push of a message
// the history missed is still shown.
func (s State) OpenConversation(counterpartId string, history []entity.Message) State {
	next := s.clone()
	next.OpenCounterpart = counterpartId
	for id, counterpart := range next.seen {
		if counterpart == counterpartId {
			delete(next.seen, id)
		}
	}
	next.Messages = make([]Entry, 0, len(history))
	for _, m := range history {
		next.Messages = append(next.Messages, Entry{Message: m})
		next.seen[m.Id] = counterpartId
	}
	delete(next.Unread, counterpartId)
	return next
}

// OptimisticAppend adds a pending entry for a message the user is sending
// and returns its provisional id.
func (s State) OptimisticAppend(recipientId string, content *string, attachment *entity.Attachment, now time.Time) (State, string) {
	clientId := provisionalPrefix + uuid.New().String()

	next := s.clone()
	next.Messages = append(next.Messages, Entry{
		Message: entity.Message{
			Id:          clientId,
			SenderId:    s.SelfId,
			RecipientId: recipientId,
			Content:     content,
			Attachment:  attachment,
			CreatedAt:   now,
		},
		ClientId: clientId,
		Pending:  true,
	})
	return next, clientId
}

// ReconcileSuccess settles a provisional entry with the stored message. If
// the pushed copy already arrived, the provisional entry is dropped instead.
func (s State) ReconcileSuccess(clientId string, confirmed entity.Message) State {
	next := s.clone()
	i := next.indexOfProvisional(clientId)

	if next.indexOf(confirmed.Id) >= 0 {
		if i >= 0 {
			next.Messages = append(next.Messages[:i], next.Messages[i+1:]...)
		}
		return next
	}

	next.seen[confirmed.Id] = next.counterpartOf(confirmed)
	if i < 0 {
		if next.counterpartOf(confirmed) == next.OpenCounterpart {
			next.Messages = append(next.Messages, Entry{Message: confirmed})
		}
		return next
	}

	next.Messages[i] = Entry{Message: confirmed, ClientId: clientId}
	return next
}

// ReconcileFailure keeps the entry visible with its error so the user can
// retry. Failed entries are never dropped.
func (s State) ReconcileFailure(clientId string, reason string) State {
	next := s.clone()
	if i := next.indexOfProvisional(clientId); i >= 0 {
		next.Messages[i].Pending = false
		next.Messages[i].Error = reason
	}
	return next
}

// Retry puts a failed entry back into the pending state.
func (s State) Retry(clientId string) State {
	next := s.clone()
	if i := next.indexOfProvisional(clientId); i >= 0 && next.Messages[i].Failed() {
		next.Messages[i].Pending = true
		next.Messages[i].Error = ""
	}
	return next
}

// ApplyPushedMessage merges a new-message event. Delivery is at least once
// per channel and the sender also receives its own messages. In the open
// conversation a message is appended unless the view already holds it;
// elsewhere an id bumps the unread counter at most once. Channel order is
// kept; nothing is re-sorted.
func (s State) ApplyPushedMessage(m entity.Message) State {
	counterpart := s.counterpartOf(m)
	if counterpart == s.OpenCounterpart {
		if s.indexOf(m.Id) >= 0 {
			return s
		}
		next := s.clone()
		next.seen[m.Id] = counterpart
		next.Messages = append(next.Messages, Entry{Message: m})
		return next
	}

	if _, ok := s.seen[m.Id]; ok {
		return s
	}
	next := s.clone()
	next.seen[m.Id] = counterpart

	if m.RecipientId == next.SelfId && !m.IsRead {
		next.Unread[counterpart]++
	}
	return next
}

// ApplyReadReceipt marks the listed messages read, limited to messages this
// user sent that are present in the view.
func (s State) ApplyReadReceipt(receipt entity.MessageReadEvent) State {
	if receipt.CounterpartId != "" && receipt.CounterpartId != s.SelfId {
		return s
	}

	ids := make(map[string]struct{}, len(receipt.MessageIds))
	for _, id := range receipt.MessageIds {
		ids[id] = struct{}{}
	}

	next := s.clone()
	for i, e := range next.Messages {
		if _, ok := ids[e.Id]; ok && e.SenderId == next.SelfId {
			next.Messages[i].IsRead = true
		}
	}
	return next
}

// ApplyLocalRead marks the open conversation's incoming messages read after
// the user viewed them.
func (s State) ApplyLocalRead(counterpartId string) State {
	next := s.clone()
	for i, e := range next.Messages {
		if e.SenderId == counterpartId && e.RecipientId == next.SelfId {
			next.Messages[i].IsRead = true
		}
	}
	delete(next.Unread, counterpartId)
	return next
}

func (s State) ApplyNewNotification(n entity.Notification) State {
	for _, existing := range s.Notifications {
		if existing.Id == n.Id {
			return s
		}
	}

	next := s.clone()
	next.Notifications = append([]entity.Notification{n}, next.Notifications...)
	return next
}

func (s State) ApplyNotificationUpdate(update entity.NotificationUpdatedEvent) State {
	next := s.clone()
	for i, n := range next.Notifications {
		if n.Id == update.Id {
			next.Notifications[i].IsRead = update.IsRead
		}
	}
	return next
}
