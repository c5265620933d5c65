package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"boardtalk/internal/entity"
	"boardtalk/internal/repository"
)

type DeadlineState int

const (
	DeadlineNone DeadlineState = iota
	DeadlineUpcoming
	DeadlineDueToday
	DeadlineOverdue
)

func (s DeadlineState) String() string {
	switch s {
	case DeadlineUpcoming:
		return "upcoming"
	case DeadlineDueToday:
		return "dueToday"
	case DeadlineOverdue:
		return "overdue"
	default:
		return "none"
	}
}

// Classify places due relative to now by calendar day in loc. A due date
// earlier today is still dueToday.
func Classify(due *time.Time, now time.Time, loc *time.Location) DeadlineState {
	if due == nil {
		return DeadlineNone
	}
	if loc == nil {
		loc = time.UTC
	}

	today := startOfDay(now, loc)
	switch dueDay := startOfDay(*due, loc); {
	case dueDay.Before(today):
		return DeadlineOverdue
	case dueDay.Equal(today):
		return DeadlineDueToday
	case dueDay.Equal(today.AddDate(0, 0, 1)):
		return DeadlineUpcoming
	default:
		return DeadlineNone
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func deadlineText(state DeadlineState, title string) string {
	switch state {
	case DeadlineUpcoming:
		return fmt.Sprintf("Card \"%s\" is due tomorrow", title)
	case DeadlineOverdue:
		return fmt.Sprintf("Card \"%s\" is overdue", title)
	default:
		return fmt.Sprintf("You have a deadline in card \"%s\"", title)
	}
}

type DeadlineUsecase interface {
	Scan(ctx context.Context) (entity.ScanResult, error)
}

type deadlineUsecase struct {
	cardRepo         repository.CardRepository
	memberRepo       repository.MemberRepository
	notificationRepo repository.NotificationRepository
	publisher        Publisher
	loc              *time.Location
	now              func() time.Time
}

func NewDeadlineUseCase(
	cardRepo repository.CardRepository,
	memberRepo repository.MemberRepository,
	notificationRepo repository.NotificationRepository,
	publisher Publisher,
	loc *time.Location,
) DeadlineUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &deadlineUsecase{
		cardRepo:         cardRepo,
		memberRepo:       memberRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		loc:              loc,
		now:              time.Now,
	}
}

// Scan notifies every member of a card's organization once per card per day
// while the card is upcoming, due today or overdue. A card updated after
// today's notification becomes eligible again.
func (d *deadlineUsecase) Scan(ctx context.Context) (entity.ScanResult, error) {
	now := d.now()
	dayStart := startOfDay(now, d.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	cards, err := d.cardRepo.FindDueBy(ctx, dayStart.AddDate(0, 0, 2))
	if err != nil {
		return entity.ScanResult{}, persistenceError("Failed to fetch cards", err)
	}

	var result entity.ScanResult
	for _, card := range cards {
		state := Classify(card.DueDate, now, d.loc)
		if state == DeadlineNone {
			continue
		}

		from := dayStart
		if card.UpdatedAt.After(from) {
			from = card.UpdatedAt
		}
		notified, err := d.notificationRepo.ExistsForCardBetween(ctx, card.Id, from, dayEnd)
		if err != nil {
			log.Printf("Failed to check notifications for card %s: %v", card.Id, err)
			continue
		}
		if notified {
			continue
		}

		result.NotificationsCreated += d.notifyMembers(ctx, card, state)
	}

	return result, nil
}

func (d *deadlineUsecase) notifyMembers(ctx context.Context, card entity.Card, state DeadlineState) int {
	members, err := d.memberRepo.FindOrgMembers(ctx, card.OrgId)
	if err != nil {
		log.Printf("Failed to fetch members of org %s: %v", card.OrgId, err)
		return 0
	}

	text := deadlineText(state, card.Title)
	created := 0
	for _, member := range members {
		notification, err := d.notificationRepo.Create(ctx, entity.Notification{
			UserId:  member.UserId,
			Kind:    entity.NotificationKindDeadline,
			OrgId:   card.OrgId,
			CardId:  card.Id,
			Message: text,
		})
		if err != nil {
			log.Printf("Failed to create deadline notification for user %s on card %s: %v", member.UserId, card.Id, err)
			continue
		}
		created++

		channel := entity.NotificationChannel(member.UserId)
		event := entity.NewNotificationEvent{Notification: notification}
		if err := d.publisher.Publish(ctx, channel, entity.EventNewNotification, event); err != nil {
			log.Printf("%v", deliveryError(channel, entity.EventNewNotification, err))
		}
	}
	return created
}
