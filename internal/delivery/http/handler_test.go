package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"boardtalk/internal/entity"
	"boardtalk/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type stubAuth struct{}

func (stubAuth) Register(ctx context.Context, req entity.RegisterRequest) (entity.AuthResponse, error) {
	return entity.AuthResponse{AccessToken: "good", User: entity.User{Id: "u1", Email: req.Email}}, nil
}

func (stubAuth) Login(ctx context.Context, req entity.LoginRequest) (entity.AuthResponse, error) {
	return entity.AuthResponse{}, usecase.ErrInvalidCredentials
}

func (stubAuth) ValidateAccessToken(token string) (*entity.TokenClaims, error) {
	if token != "good" {
		return nil, usecase.ErrUnauthorized
	}
	return &entity.TokenClaims{UserId: "u1"}, nil
}

type stubMessages struct {
	sent     entity.SendMessageRequest
	senderId string
	upload   *entity.FileUpload
	err      error
}

func (s *stubMessages) Send(ctx context.Context, senderId string, req entity.SendMessageRequest) (entity.Message, error) {
	s.senderId, s.sent = senderId, req
	if s.err != nil {
		return entity.Message{}, s.err
	}
	return entity.Message{Id: "m1", SenderId: senderId, RecipientId: req.RecipientId, Content: req.Content}, nil
}

func (s *stubMessages) SendWithAttachment(ctx context.Context, senderId string, req entity.SendMessageRequest, file *entity.FileUpload) (entity.Message, error) {
	s.upload = file
	return s.Send(ctx, senderId, req)
}

func (s *stubMessages) GetMessages(ctx context.Context, userId, counterpartId string) ([]entity.Message, error) {
	return []entity.Message{{Id: "m1", SenderId: counterpartId, RecipientId: userId}}, nil
}

func (s *stubMessages) MarkAsRead(ctx context.Context, viewerId, counterpartId string) (entity.ReadResult, error) {
	return entity.ReadResult{UpdatedCount: 2, UnreadCount: 5}, nil
}

func (s *stubMessages) UnreadCounts(ctx context.Context, userId string) (entity.UnreadSummary, error) {
	return entity.UnreadSummary{Total: 1, BySender: map[string]int64{"u2": 1}}, nil
}

type stubNotifications struct {
	markErr error
}

func (s *stubNotifications) GetNotifications(ctx context.Context, userId string) ([]entity.NotificationView, error) {
	return []entity.NotificationView{
		entity.DeadlineNotification{Kind: entity.NotificationKindDeadline, Id: "n1", CardId: "c1"},
	}, nil
}

func (s *stubNotifications) MarkAllAsRead(ctx context.Context, userId string) error { return nil }

func (s *stubNotifications) MarkAsRead(ctx context.Context, userId, notificationId string) error {
	return s.markErr
}

type stubUsers struct{}

func (stubUsers) Get(ctx context.Context, userId string) (entity.User, error) {
	return entity.User{Id: userId}, nil
}

type stubDeadlines struct{ calls int }

func (s *stubDeadlines) Scan(ctx context.Context) (entity.ScanResult, error) {
	s.calls++
	return entity.ScanResult{NotificationsCreated: 2}, nil
}

type testServer struct {
	router        *chi.Mux
	messages      *stubMessages
	notifications *stubNotifications
	deadlines     *stubDeadlines
}

func newTestServer() *testServer {
	ts := &testServer{
		router:        chi.NewRouter(),
		messages:      &stubMessages{},
		notifications: &stubNotifications{},
		deadlines:     &stubDeadlines{},
	}
	MapHttpRoutes(ts.router, Handlers{
		Http:           NewHttpHandler(ts.messages, ts.notifications, stubUsers{}, 1<<20),
		Auth:           NewAuthHandler(stubAuth{}),
		Cron:           NewCronHandler(ts.deadlines, "s3cret"),
		Websocket:      http.NotFoundHandler(),
		AuthMiddleware: NewAuthMiddleware(stubAuth{}),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	body := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec, body
}

func authed(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	ts := newTestServer()

	for _, token := range []string{"", "Bearer bad", "Basic good"} {
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		if token != "" {
			req.Header.Set("Authorization", token)
		}
		rec, body := ts.do(t, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d, want 401", token, rec.Code)
		}
		if body["error"] != "Unauthorized" || len(body) != 1 {
			t.Errorf("%q: body = %v", token, body)
		}
	}
}

func TestTokenQueryParameter(t *testing.T) {
	ts := newTestServer()
	rec, _ := ts.do(t, httptest.NewRequest(http.MethodGet, "/notifications?token=good", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSendMessage(t *testing.T) {
	ts := newTestServer()

	rec, body := ts.do(t, authed(http.MethodPost, "/messages", `{"recipientId":"u2","content":"ping"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if ts.messages.senderId != "u1" {
		t.Errorf("sender = %q, want caller u1", ts.messages.senderId)
	}

	data := body["data"].(map[string]any)
	message := data["message"].(map[string]any)
	if message["senderId"] != "u1" || message["recipientId"] != "u2" || message["content"] != "ping" || message["isRead"] != false {
		t.Errorf("message = %v", message)
	}
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"malformed body", `{`, nil, http.StatusBadRequest, "ValidationError"},
		{"missing recipient", `{"content":"hi"}`, usecase.ErrRecipientRequired, http.StatusBadRequest, "ValidationError"},
		{"unknown recipient", `{"recipientId":"ghost","content":"hi"}`, usecase.ErrRecipientNotFound, http.StatusNotFound, "NotFoundError"},
		{"store down", `{"recipientId":"u2","content":"hi"}`, errors.New("boom"), http.StatusInternalServerError, "PersistenceError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.messages.err = tt.err

			rec, body := ts.do(t, authed(http.MethodPost, "/messages", tt.body))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if body["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %s", body["kind"], tt.wantKind)
			}
			if _, ok := body["data"]; ok {
				t.Errorf("error response carries data: %v", body)
			}
		})
	}
}

func TestSendMessageMissingRecipientUsesServiceMessage(t *testing.T) {
	ts := newTestServer()
	ts.messages.err = usecase.ErrRecipientRequired

	rec, body := ts.do(t, authed(http.MethodPost, "/messages", `{"recipientId":"  ","content":"hi"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ts.messages.sent.RecipientId != "  " {
		t.Errorf("request did not reach the message service: %+v", ts.messages.sent)
	}
	if body["error"] != "Recipient ID is required" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestSendMessageWithAttachment(t *testing.T) {
	ts := newTestServer()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("recipientId", "u2")
	_ = mw.WriteField("content", "see attached")
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="../notes.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	_, _ = part.Write([]byte("hello"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/messages/attachment", &buf)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec, _ := ts.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	upload := ts.messages.upload
	if upload == nil {
		t.Fatal("no upload reached the usecase")
	}
	if upload.Name != "notes.txt" || upload.MimeType != "text/plain" || string(upload.Data) != "hello" {
		t.Errorf("upload = %+v", upload)
	}
	if ts.messages.sent.Content == nil || *ts.messages.sent.Content != "see attached" {
		t.Errorf("content = %v", ts.messages.sent.Content)
	}
}

func TestMarkMessagesAsRead(t *testing.T) {
	ts := newTestServer()

	rec, body := ts.do(t, authed(http.MethodPost, "/messages/u2/read", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := body["data"].(map[string]any)
	if data["success"] != true || data["updatedCount"] != float64(2) || data["unreadCount"] != float64(5) {
		t.Errorf("data = %v", data)
	}
}

func TestUnreadRouteIsNotAConversation(t *testing.T) {
	ts := newTestServer()

	_, body := ts.do(t, authed(http.MethodGet, "/messages/unread", ""))
	data := body["data"].(map[string]any)
	if data["total"] != float64(1) {
		t.Errorf("data = %v", data)
	}
}

func TestGetNotificationsCarriesKind(t *testing.T) {
	ts := newTestServer()

	_, body := ts.do(t, authed(http.MethodGet, "/notifications", ""))
	items := body["data"].(map[string]any)["notifications"].([]any)
	first := items[0].(map[string]any)
	if first["kind"] != "deadline" || first["cardId"] != "c1" {
		t.Errorf("notification = %v", first)
	}
}

func TestMarkNotificationOwnedByAnotherUser(t *testing.T) {
	ts := newTestServer()
	ts.notifications.markErr = usecase.ErrUnauthorized

	rec, body := ts.do(t, authed(http.MethodPost, "/notifications/n1/read", ""))
	if rec.Code != http.StatusUnauthorized || body["error"] != "Unauthorized" {
		t.Errorf("status = %d body = %v", rec.Code, body)
	}
}

func TestCheckDeadlinesSecret(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		secret     string
		wantStatus int
	}{
		{"missing", http.MethodGet, "", http.StatusUnauthorized},
		{"wrong", http.MethodPost, "nope", http.StatusUnauthorized},
		{"get", http.MethodGet, "s3cret", http.StatusOK},
		{"post", http.MethodPost, "s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			req := httptest.NewRequest(tt.method, "/cron/check-deadlines", nil)
			if tt.secret != "" {
				req.Header.Set(CronSecretHeader, tt.secret)
			}

			rec, body := ts.do(t, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				if ts.deadlines.calls != 0 {
					t.Errorf("scan ran without credential")
				}
				return
			}
			data := body["data"].(map[string]any)
			if data["notificationsCreated"] != float64(2) {
				t.Errorf("data = %v", data)
			}
		})
	}
}

func TestCronHandlerWithoutSecretRejects(t *testing.T) {
	deadlines := &stubDeadlines{}
	h := NewCronHandler(deadlines, "")

	req := httptest.NewRequest(http.MethodGet, "/cron/check-deadlines", nil)
	req.Header.Set(CronSecretHeader, "")
	rec := httptest.NewRecorder()
	h.CheckDeadlines(rec, req)

	if rec.Code != http.StatusUnauthorized || deadlines.calls != 0 {
		t.Errorf("status = %d calls = %d", rec.Code, deadlines.calls)
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"username":"ad","email":"ada@example.com","password":"secret1","firstName":"Ada"}`))
	rec, body := ts.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error"] != "username must be at least 3 characters" {
		t.Errorf("error = %v", body["error"])
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"username":"ada","email":"ada@example.com","password":"secret1","firstName":"Ada"}`))
	rec, body = ts.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if body["data"].(map[string]any)["accessToken"] != "good" {
		t.Errorf("body = %v", body)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"wrong"}`))
	rec, _ := ts.do(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
