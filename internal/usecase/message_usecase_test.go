package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"boardtalk/internal/entity"
)

type messageFixture struct {
	store     *store
	publisher *recordingPublisher
	uploader  *fakeUploader
	uc        MessageUsecase
}

func newMessageFixture() messageFixture {
	s := newStore()
	s.addUser("u1", "Ada")
	s.addUser("u2", "Grace")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.clock = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	p := &recordingPublisher{}
	up := &fakeUploader{}
	return messageFixture{
		store:     s,
		publisher: p,
		uploader:  up,
		uc:        NewMessageUseCase(userStore{s}, messageStore{s}, notificationStore{s}, p, up),
	}
}

func TestSendPersistsNotifiesAndPublishes(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	msg, err := f.uc.Send(ctx, "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("ping")})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.SenderId != "u1" || msg.RecipientId != "u2" || *msg.Content != "ping" || msg.IsRead {
		t.Fatalf("unexpected message %+v", msg)
	}

	messages, err := f.uc.GetMessages(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(messages) != 1 || *messages[0].Content != "ping" || messages[0].IsRead {
		t.Fatalf("conversation = %+v", messages)
	}

	if len(f.store.notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(f.store.notifications))
	}
	n := f.store.notifications[0]
	if n.UserId != "u2" || n.SenderId != "u1" || n.Kind != entity.NotificationKindMessage {
		t.Errorf("unexpected notification %+v", n)
	}
	if n.Message != "You have a new message from Ada" {
		t.Errorf("notification text = %q", n.Message)
	}

	toRecipient := f.publisher.on("user-u2", entity.EventNewMessage)
	toSender := f.publisher.on("user-u1", entity.EventNewMessage)
	if len(toRecipient) != 1 || len(toSender) != 1 {
		t.Fatalf("publishes: recipient=%d sender=%d, want 1 each", len(toRecipient), len(toSender))
	}
	event := toRecipient[0].Payload.(entity.NewMessageEvent)
	if event.MessageId != msg.Id || event.SenderName != "Ada" {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestSendToSelfPublishesOnce(t *testing.T) {
	f := newMessageFixture()

	if _, err := f.uc.Send(context.Background(), "u1", entity.SendMessageRequest{RecipientId: "u1", Content: strPtr("note")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := len(f.publisher.on("user-u1", entity.EventNewMessage)); got != 1 {
		t.Fatalf("got %d publishes, want 1", got)
	}
}

func TestSendValidation(t *testing.T) {
	tests := []struct {
		name     string
		senderId string
		req      entity.SendMessageRequest
		want     error
	}{
		{"no caller", "", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("hi")}, ErrUnauthorized},
		{"no recipient", "u1", entity.SendMessageRequest{Content: strPtr("hi")}, ErrRecipientRequired},
		{"no content", "u1", entity.SendMessageRequest{RecipientId: "u2"}, ErrEmptyMessage},
		{"empty content", "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("")}, ErrEmptyMessage},
		{"blank content", "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("   \n")}, ErrBlankContent},
		{"unknown recipient", "u1", entity.SendMessageRequest{RecipientId: "ghost", Content: strPtr("hi")}, ErrRecipientNotFound},
		{"unknown sender", "ghost", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("hi")}, ErrSenderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMessageFixture()
			_, err := f.uc.Send(context.Background(), tt.senderId, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(f.store.messages) != 0 || len(f.publisher.events) != 0 {
				t.Errorf("rejected send left side effects")
			}
		})
	}
}

func TestSendStoreFailureSkipsPublish(t *testing.T) {
	t.Run("message write", func(t *testing.T) {
		f := newMessageFixture()
		f.store.failMessageCreate = true

		_, err := f.uc.Send(context.Background(), "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("hi")})
		if KindOf(err) != KindPersistence {
			t.Fatalf("kind = %s, want %s", KindOf(err), KindPersistence)
		}
		if len(f.store.notifications) != 0 || len(f.publisher.events) != 0 {
			t.Errorf("failed message write must not notify or publish")
		}
	})

	t.Run("notification write", func(t *testing.T) {
		f := newMessageFixture()
		f.store.failNotificationCreate = func(entity.Notification) bool { return true }

		_, err := f.uc.Send(context.Background(), "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("hi")})
		if KindOf(err) != KindPersistence {
			t.Fatalf("kind = %s, want %s", KindOf(err), KindPersistence)
		}
		if len(f.publisher.events) != 0 {
			t.Errorf("published %d events after failed notification write", len(f.publisher.events))
		}
	})
}

func TestSendSucceedsWhenPublishFails(t *testing.T) {
	f := newMessageFixture()
	f.publisher.err = errors.New("bus unavailable")

	msg, err := f.uc.Send(context.Background(), "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("hi")})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Id == "" || len(f.store.messages) != 1 {
		t.Fatalf("message not persisted")
	}
}

func TestSendWithAttachment(t *testing.T) {
	f := newMessageFixture()
	file := &entity.FileUpload{Name: "brief.pdf", MimeType: "application/pdf", Data: []byte("%PDF")}

	msg, err := f.uc.SendWithAttachment(context.Background(), "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("  ")}, file)
	if err != nil {
		t.Fatalf("SendWithAttachment: %v", err)
	}
	if msg.Content != nil {
		t.Errorf("blank caption should be dropped, got %q", *msg.Content)
	}
	if msg.Attachment == nil || msg.Attachment.FileId != "file-brief.pdf" || msg.Attachment.FileType != "application/pdf" {
		t.Fatalf("attachment = %+v", msg.Attachment)
	}

	event := f.publisher.on("user-u2", entity.EventNewMessage)[0].Payload.(entity.NewMessageEvent)
	if event.FileId == nil || *event.FileId != "file-brief.pdf" {
		t.Errorf("event missing file id: %+v", event)
	}
}

func TestSendWithAttachmentUploadFailure(t *testing.T) {
	f := newMessageFixture()
	f.uploader.err = errors.New("bucket gone")
	file := &entity.FileUpload{Name: "a.png", MimeType: "image/png", Data: []byte{1}}

	_, err := f.uc.SendWithAttachment(context.Background(), "u1", entity.SendMessageRequest{RecipientId: "u2"}, file)
	if KindOf(err) != KindPersistence {
		t.Fatalf("kind = %s, want %s", KindOf(err), KindPersistence)
	}
	if len(f.store.messages) != 0 {
		t.Errorf("message persisted despite failed upload")
	}
}

func TestSendWithAttachmentDisabled(t *testing.T) {
	s := newStore()
	s.addUser("u1", "Ada")
	s.addUser("u2", "Grace")
	uc := NewMessageUseCase(userStore{s}, messageStore{s}, notificationStore{s}, &recordingPublisher{}, nil)
	file := &entity.FileUpload{Name: "a.png", MimeType: "image/png", Data: []byte{1}}

	_, err := uc.SendWithAttachment(context.Background(), "u1", entity.SendMessageRequest{RecipientId: "u2"}, file)
	if !errors.Is(err, ErrAttachmentUnavailable) {
		t.Fatalf("err = %v, want %v", err, ErrAttachmentUnavailable)
	}
}

func TestGetMessagesKeepsSendOrder(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	for _, text := range []string{"first", "second"} {
		if _, err := f.uc.Send(ctx, "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr(text)}); err != nil {
			t.Fatalf("Send(%s): %v", text, err)
		}
	}

	for _, viewer := range []string{"u1", "u2"} {
		counterpart := "u2"
		if viewer == "u2" {
			counterpart = "u1"
		}
		messages, err := f.uc.GetMessages(ctx, viewer, counterpart)
		if err != nil {
			t.Fatalf("GetMessages(%s): %v", viewer, err)
		}
		if len(messages) != 2 || *messages[0].Content != "first" || *messages[1].Content != "second" {
			t.Errorf("viewer %s got out-of-order conversation", viewer)
		}
	}
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.uc.Send(ctx, "u1", entity.SendMessageRequest{RecipientId: "u2", Content: strPtr("hi")}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	first, err := f.uc.MarkAsRead(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if first.UpdatedCount != 3 || first.UnreadCount != 0 {
		t.Fatalf("first = %+v, want 3 updated and 0 unread", first)
	}

	second, err := f.uc.MarkAsRead(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if second.UpdatedCount != 0 {
		t.Fatalf("second.UpdatedCount = %d, want 0", second.UpdatedCount)
	}

	for _, m := range f.store.messages {
		if !m.IsRead {
			t.Errorf("message %s still unread", m.Id)
		}
	}

	receipts := f.publisher.on("user-u1", entity.EventMessageRead)
	if len(receipts) != 1 {
		t.Fatalf("got %d read receipts, want exactly one batch", len(receipts))
	}
	event := receipts[0].Payload.(entity.MessageReadEvent)
	if len(event.MessageIds) != 3 || event.ReaderId != "u2" || event.CounterpartId != "u1" {
		t.Errorf("unexpected receipt %+v", event)
	}
}

func TestMarkAsReadLeavesOtherSendersUnread(t *testing.T) {
	f := newMessageFixture()
	f.store.addUser("u3", "Linus")
	ctx := context.Background()

	mustSend := func(from, to string) {
		t.Helper()
		if _, err := f.uc.Send(ctx, from, entity.SendMessageRequest{RecipientId: to, Content: strPtr("x")}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	mustSend("u1", "u2")
	mustSend("u3", "u2")
	mustSend("u3", "u2")

	result, err := f.uc.MarkAsRead(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if result.UpdatedCount != 1 || result.UnreadCount != 2 {
		t.Fatalf("result = %+v, want 1 updated and 2 unread", result)
	}

	summary, err := f.uc.UnreadCounts(ctx, "u2")
	if err != nil {
		t.Fatalf("UnreadCounts: %v", err)
	}
	if summary.Total != 2 || summary.BySender["u3"] != 2 || summary.BySender["u1"] != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestMarkAsReadRequiresCaller(t *testing.T) {
	f := newMessageFixture()
	if _, err := f.uc.MarkAsRead(context.Background(), "", "u1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want %v", err, ErrUnauthorized)
	}
	if _, err := f.uc.MarkAsRead(context.Background(), "u2", " "); KindOf(err) != KindValidation {
		t.Fatalf("kind = %s, want %s", KindOf(err), KindValidation)
	}
}

func TestSendWithAttachmentRemovesFileWhenMessageNotStored(t *testing.T) {
	f := newMessageFixture()
	f.store.failMessageCreate = true
	file := &entity.FileUpload{Name: "a.png", MimeType: "image/png", Data: []byte{1}}

	_, err := f.uc.SendWithAttachment(context.Background(), "u1", entity.SendMessageRequest{RecipientId: "u2"}, file)
	if KindOf(err) != KindPersistence {
		t.Fatalf("kind = %s, want %s", KindOf(err), KindPersistence)
	}
	if len(f.uploader.deleted) != 1 || f.uploader.deleted[0] != "file-a.png" {
		t.Errorf("deleted = %v, want [file-a.png]", f.uploader.deleted)
	}
}
