package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"boardtalk/internal/entity"
	"boardtalk/internal/repository"
)

// Publisher is the Channel Bus as seen by the services.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// FileStore holds attachment bytes under an external file id.
type FileStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, fileId string) error
}

type MessageUsecase interface {
	Send(ctx context.Context, senderId string, req entity.SendMessageRequest) (entity.Message, error)
	SendWithAttachment(ctx context.Context, senderId string, req entity.SendMessageRequest, file *entity.FileUpload) (entity.Message, error)
	GetMessages(ctx context.Context, userId, counterpartId string) ([]entity.Message, error)
	MarkAsRead(ctx context.Context, viewerId, counterpartId string) (entity.ReadResult, error)
	UnreadCounts(ctx context.Context, userId string) (entity.UnreadSummary, error)
}

type messageUsecase struct {
	userRepo         repository.UserRepository
	messageRepo      repository.MessageRepository
	notificationRepo repository.NotificationRepository
	publisher        Publisher
	uploader         FileStore
}

// NewMessageUseCase wires the Messaging Service. uploader may be nil, in
// which case attachment sends are rejected.
func NewMessageUseCase(
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
	notificationRepo repository.NotificationRepository,
	publisher Publisher,
	uploader FileStore,
) MessageUsecase {
	return &messageUsecase{
		userRepo:         userRepo,
		messageRepo:      messageRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		uploader:         uploader,
	}
}

func (m *messageUsecase) Send(ctx context.Context, senderId string, req entity.SendMessageRequest) (entity.Message, error) {
	return m.send(ctx, senderId, req, nil)
}

func (m *messageUsecase) SendWithAttachment(ctx context.Context, senderId string, req entity.SendMessageRequest, file *entity.FileUpload) (entity.Message, error) {
	if file != nil && len(file.Data) == 0 {
		file = nil
	}
	if file != nil && m.uploader == nil {
		return entity.Message{}, ErrAttachmentUnavailable
	}
	return m.send(ctx, senderId, req, file)
}

// send persists the message, then its notification, and only then publishes.
// A failed write returns before anything reaches the bus.
func (m *messageUsecase) send(ctx context.Context, senderId string, req entity.SendMessageRequest, file *entity.FileUpload) (entity.Message, error) {
	if senderId == "" {
		return entity.Message{}, ErrUnauthorized
	}

	recipientId := strings.TrimSpace(req.RecipientId)
	if recipientId == "" {
		return entity.Message{}, ErrRecipientRequired
	}

	content, err := normalizeContent(req.Content, file != nil)
	if err != nil {
		return entity.Message{}, err
	}

	if _, err := m.findUser(ctx, recipientId, ErrRecipientNotFound); err != nil {
		return entity.Message{}, err
	}
	sender, err := m.findUser(ctx, senderId, ErrSenderNotFound)
	if err != nil {
		return entity.Message{}, err
	}

	message := entity.Message{
		SenderId:    senderId,
		RecipientId: recipientId,
		Content:     content,
	}

	if file != nil {
		fileId, err := m.uploader.Upload(ctx, file.Name, file.MimeType, file.Data)
		if err != nil {
			return entity.Message{}, persistenceError("Failed to upload attachment", err)
		}
		message.Attachment = &entity.Attachment{
			FileId:           fileId,
			OriginalFileName: file.Name,
			FileType:         file.MimeType,
		}
	}

	stored, err := m.messageRepo.Create(ctx, message)
	if err != nil {
		m.discardAttachment(ctx, message.Attachment)
		return entity.Message{}, persistenceError("Failed to send message", err)
	}
	message = stored

	_, err = m.notificationRepo.Create(ctx, entity.Notification{
		UserId:   recipientId,
		Kind:     entity.NotificationKindMessage,
		SenderId: senderId,
		Message:  fmt.Sprintf("You have a new message from %s", sender.DisplayName()),
	})
	if err != nil {
		return entity.Message{}, persistenceError("Failed to create notification", err)
	}

	event := entity.NewMessageEventFrom(message, sender.DisplayName())
	for _, userId := range deliveryTargets(message) {
		m.publish(ctx, entity.UserChannel(userId), entity.EventNewMessage, event)
	}

	return message, nil
}

// discardAttachment removes an uploaded file whose message was never stored.
func (m *messageUsecase) discardAttachment(ctx context.Context, attachment *entity.Attachment) {
	if attachment == nil {
		return
	}
	if err := m.uploader.Delete(ctx, attachment.FileId); err != nil {
		log.Printf("Failed to remove orphaned attachment %s: %v", attachment.FileId, err)
	}
}

// deliveryTargets is the new-message fan-out: the recipient, plus the
// sender so their other sessions converge. Consumers dedupe by message id.
func deliveryTargets(message entity.Message) []string {
	if message.SenderId == message.RecipientId {
		return []string{message.RecipientId}
	}
	return []string{message.RecipientId, message.SenderId}
}

func normalizeContent(content *string, hasAttachment bool) (*string, error) {
	if content == nil {
		if !hasAttachment {
			return nil, ErrEmptyMessage
		}
		return nil, nil
	}

	trimmed := strings.TrimSpace(*content)
	if trimmed == "" {
		if hasAttachment {
			return nil, nil
		}
		if *content == "" {
			return nil, ErrEmptyMessage
		}
		return nil, ErrBlankContent
	}

	return content, nil
}

func (m *messageUsecase) findUser(ctx context.Context, userId string, notFound *Error) (entity.User, error) {
	user, err := m.userRepo.Get(ctx, userId)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.User{}, notFound
		}
		return entity.User{}, persistenceError("Failed to load user", err)
	}
	return user, nil
}

func (m *messageUsecase) GetMessages(ctx context.Context, userId, counterpartId string) ([]entity.Message, error) {
	if userId == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(counterpartId) == "" {
		return nil, ErrRecipientRequired
	}

	messages, err := m.messageRepo.GetConversation(ctx, userId, counterpartId)
	if err != nil {
		return nil, persistenceError("Failed to fetch messages", err)
	}
	return messages, nil
}

// MarkAsRead flips the viewer's unread messages from counterpartId and sends
// one read receipt for the whole batch to the counterpart's channel.
func (m *messageUsecase) MarkAsRead(ctx context.Context, viewerId, counterpartId string) (entity.ReadResult, error) {
	if viewerId == "" {
		return entity.ReadResult{}, ErrUnauthorized
	}
	if strings.TrimSpace(counterpartId) == "" {
		return entity.ReadResult{}, validationError("Sender ID is required")
	}

	ids, err := m.messageRepo.MarkConversationRead(ctx, viewerId, counterpartId)
	if err != nil {
		return entity.ReadResult{}, persistenceError("Failed to mark messages as read", err)
	}

	if len(ids) > 0 {
		m.publish(ctx, entity.UserChannel(counterpartId), entity.EventMessageRead, entity.MessageReadEvent{
			MessageIds:    ids,
			ReaderId:      viewerId,
			CounterpartId: counterpartId,
		})
	}

	unread, err := m.messageRepo.CountUnread(ctx, viewerId)
	if err != nil {
		return entity.ReadResult{}, persistenceError("Failed to count unread messages", err)
	}

	return entity.ReadResult{
		UpdatedCount: int64(len(ids)),
		UnreadCount:  unread,
	}, nil
}

func (m *messageUsecase) UnreadCounts(ctx context.Context, userId string) (entity.UnreadSummary, error) {
	if userId == "" {
		return entity.UnreadSummary{}, ErrUnauthorized
	}

	bySender, err := m.messageRepo.CountUnreadBySender(ctx, userId)
	if err != nil {
		return entity.UnreadSummary{}, persistenceError("Failed to count unread messages", err)
	}

	var total int64
	for _, count := range bySender {
		total += count
	}

	return entity.UnreadSummary{Total: total, BySender: bySender}, nil
}

// publish is best effort: the write it announces is already durable.
func (m *messageUsecase) publish(ctx context.Context, channel, event string, payload any) {
	if err := m.publisher.Publish(ctx, channel, event, payload); err != nil {
		log.Printf("%v", deliveryError(channel, event, err))
	}
}
