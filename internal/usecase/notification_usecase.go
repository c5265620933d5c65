package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"boardtalk/internal/entity"
	"boardtalk/internal/repository"
)

const latestNotificationsLimit = 10

type NotificationUsecase interface {
	GetNotifications(ctx context.Context, userId string) ([]entity.NotificationView, error)
	MarkAllAsRead(ctx context.Context, userId string) error
	MarkAsRead(ctx context.Context, userId, notificationId string) error
}

type notificationUsecase struct {
	notificationRepo repository.NotificationRepository
	publisher        Publisher
}

func NewNotificationUseCase(notificationRepo repository.NotificationRepository, publisher Publisher) NotificationUsecase {
	return &notificationUsecase{
		notificationRepo: notificationRepo,
		publisher:        publisher,
	}
}

func (n *notificationUsecase) GetNotifications(ctx context.Context, userId string) ([]entity.NotificationView, error) {
	if userId == "" {
		return nil, ErrUnauthorized
	}

	notifications, err := n.notificationRepo.GetLatest(ctx, userId, latestNotificationsLimit)
	if err != nil {
		return nil, persistenceError("Failed to fetch notifications", err)
	}

	views := make([]entity.NotificationView, 0, len(notifications))
	for _, notification := range notifications {
		views = append(views, notification.View())
	}
	return views, nil
}

func (n *notificationUsecase) MarkAllAsRead(ctx context.Context, userId string) error {
	if userId == "" {
		return ErrUnauthorized
	}

	ids, err := n.notificationRepo.MarkAllRead(ctx, userId)
	if err != nil {
		return persistenceError("Failed to mark notifications as read", err)
	}

	channel := entity.NotificationChannel(userId)
	for _, id := range ids {
		n.publish(ctx, channel, entity.NotificationUpdatedEvent{Id: id, IsRead: true})
	}
	return nil
}

func (n *notificationUsecase) MarkAsRead(ctx context.Context, userId, notificationId string) error {
	if userId == "" {
		return ErrUnauthorized
	}
	if strings.TrimSpace(notificationId) == "" {
		return validationError("Notification ID is required")
	}

	notification, err := n.notificationRepo.Get(ctx, notificationId)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return persistenceError("Failed to fetch notification", err)
	}
	if notification.UserId != userId {
		return ErrUnauthorized
	}

	flipped, err := n.notificationRepo.MarkRead(ctx, notificationId)
	if err != nil {
		return persistenceError("Failed to mark notification as read", err)
	}
	if flipped {
		n.publish(ctx, entity.NotificationChannel(userId), entity.NotificationUpdatedEvent{Id: notificationId, IsRead: true})
	}
	return nil
}

func (n *notificationUsecase) publish(ctx context.Context, channel string, payload entity.NotificationUpdatedEvent) {
	if err := n.publisher.Publish(ctx, channel, entity.EventNotificationUpdated, payload); err != nil {
		log.Printf("%v", deliveryError(channel, entity.EventNotificationUpdated, err))
	}
}
