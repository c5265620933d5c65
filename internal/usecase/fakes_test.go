package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"boardtalk/internal/entity"
	"boardtalk/internal/repository"
)

var errStoreDown = errors.New("store down")

// store is an in-memory stand-in for every repository the usecases touch.
type store struct {
	mu            sync.Mutex
	seq           int
	clock         func() time.Time
	users         map[string]entity.User
	messages      []entity.Message
	notifications []entity.Notification
	cards         []entity.Card
	members       []entity.Member

	failMessageCreate      bool
	failNotificationCreate func(entity.Notification) bool
}

func newStore() *store {
	return &store{
		clock: func() time.Time { return time.Now().UTC() },
		users: map[string]entity.User{},
	}
}

func (s *store) addUser(id, firstName string) {
	s.users[id] = entity.User{Id: id, Username: id, Email: id + "@example.com", FirstName: firstName}
}

func (s *store) nextId(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type userStore struct{ *store }

func (s userStore) Get(ctx context.Context, userId string) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userId]
	if !ok {
		return entity.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s userStore) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return entity.User{}, repository.ErrUserNotFound
}

func (s userStore) Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []entity.User{}
	for _, id := range filter.Ids {
		if user, ok := s.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s userStore) Create(ctx context.Context, user entity.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Id = s.nextId("user")
	s.users[user.Id] = user
	return user.Id, nil
}

func (s userStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s userStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type messageStore struct{ *store }

func (s messageStore) Create(ctx context.Context, message entity.Message) (entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMessageCreate {
		return entity.Message{}, errStoreDown
	}
	message.Id = s.nextId("msg")
	message.CreatedAt = s.clock()
	message.IsRead = false
	s.messages = append(s.messages, message)
	return message, nil
}

func (s messageStore) GetConversation(ctx context.Context, userId, counterpartId string) ([]entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := []entity.Message{}
	for _, m := range s.messages {
		if (m.SenderId == userId && m.RecipientId == counterpartId) ||
			(m.SenderId == counterpartId && m.RecipientId == userId) {
			messages = append(messages, m)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (s messageStore) MarkConversationRead(ctx context.Context, recipientId, senderId string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for i, m := range s.messages {
		if m.RecipientId == recipientId && m.SenderId == senderId && !m.IsRead {
			s.messages[i].IsRead = true
			ids = append(ids, m.Id)
		}
	}
	return ids, nil
}

func (s messageStore) CountUnread(ctx context.Context, recipientId string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.RecipientId == recipientId && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (s messageStore) CountUnreadBySender(ctx context.Context, recipientId string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int64{}
	for _, m := range s.messages {
		if m.RecipientId == recipientId && !m.IsRead {
			counts[m.SenderId]++
		}
	}
	return counts, nil
}

type notificationStore struct{ *store }

func (s notificationStore) Create(ctx context.Context, notification entity.Notification) (entity.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNotificationCreate != nil && s.failNotificationCreate(notification) {
		return entity.Notification{}, errStoreDown
	}
	notification.Id = s.nextId("notif")
	notification.CreatedAt = s.clock()
	notification.UpdatedAt = notification.CreatedAt
	notification.IsRead = false
	s.notifications = append(s.notifications, notification)
	return notification, nil
}

func (s notificationStore) Get(ctx context.Context, notificationId string) (entity.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.Id == notificationId {
			return n, nil
		}
	}
	return entity.Notification{}, repository.ErrNotificationNotFound
}

func (s notificationStore) GetLatest(ctx context.Context, userId string, limit int) ([]entity.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []entity.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserId == userId {
			result = append(result, s.notifications[i])
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s notificationStore) MarkAllRead(ctx context.Context, userId string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for i, n := range s.notifications {
		if n.UserId == userId && !n.IsRead {
			s.notifications[i].IsRead = true
			ids = append(ids, n.Id)
		}
	}
	return ids, nil
}

func (s notificationStore) MarkRead(ctx context.Context, notificationId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.Id == notificationId && !n.IsRead {
			s.notifications[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (s notificationStore) ExistsForCardBetween(ctx context.Context, cardId string, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.CardId == cardId && !n.CreatedAt.Before(from) && n.CreatedAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

type cardStore struct{ *store }

func (s cardStore) FindDueBy(ctx context.Context, before time.Time) ([]entity.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := []entity.Card{}
	for _, c := range s.cards {
		if c.DueDate != nil && c.DueDate.Before(before) {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

type memberStore struct{ *store }

func (s memberStore) FindOrgMembers(ctx context.Context, orgId string) ([]entity.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := []entity.Member{}
	for _, m := range s.members {
		if m.OrgId == orgId {
			members = append(members, m)
		}
	}
	return members, nil
}

type published struct {
	Channel string
	Event   string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (p *recordingPublisher) on(channel, event string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.Channel == channel && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeUploader struct {
	uploads []string
	deleted []string
	err     error
}

func (u *fakeUploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.uploads = append(u.uploads, name)
	return "file-" + name, nil
}

func (u *fakeUploader) Delete(ctx context.Context, fileId string) error {
	u.deleted = append(u.deleted, fileId)
	return nil
}

func strPtr(s string) *string { return &s }
