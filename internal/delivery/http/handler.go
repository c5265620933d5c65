package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"boardtalk/internal/entity"
	"boardtalk/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// multipart framing allowance on top of the file itself
const formOverhead = 1 << 20

type HttpHandler struct {
	messageUc      usecase.MessageUsecase
	notificationUc usecase.NotificationUsecase
	userUc         usecase.UserUsecase
	maxUploadBytes int64
}

func NewHttpHandler(messageUc usecase.MessageUsecase, notificationUc usecase.NotificationUsecase, userUc usecase.UserUsecase, maxUploadBytes int64) *HttpHandler {
	return &HttpHandler{
		messageUc:      messageUc,
		notificationUc: notificationUc,
		userUc:         userUc,
		maxUploadBytes: maxUploadBytes,
	}
}

// Method Post /messages
func (h *HttpHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req entity.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}

	message, err := h.messageUc.Send(r.Context(), callerId(r), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]any{"message": message})
}

// Method Post /messages/attachment
func (h *HttpHandler) SendMessageWithAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeValidation(w, "invalid multipart body")
		return
	}

	req := entity.SendMessageRequest{RecipientId: r.FormValue("recipientId")}
	if values := r.MultipartForm.Value["content"]; len(values) > 0 {
		content := values[0]
		req.Content = &content
	}
	if err := validateStruct(&req); err != nil {
		writeValidation(w, err.Error())
		return
	}

	upload, err := readUpload(r, h.maxUploadBytes)
	if err != nil {
		writeValidation(w, err.Error())
		return
	}

	message, err := h.messageUc.SendWithAttachment(r.Context(), callerId(r), req, upload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]any{"message": message})
}

func readUpload(r *http.Request, limit int64) (*entity.FileUpload, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("invalid file")
	}
	defer file.Close()

	if header.Size > limit {
		return nil, errors.New("file is too large")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("invalid file")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	return &entity.FileUpload{
		Name:     filepath.Base(header.Filename),
		MimeType: mimeType,
		Data:     data,
	}, nil
}

// Method Get /messages/:recipientId
func (h *HttpHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageUc.GetMessages(r.Context(), callerId(r), chi.URLParam(r, "recipientId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"messages": messages})
}

// Method Post /messages/:senderId/read
func (h *HttpHandler) MarkMessagesAsRead(w http.ResponseWriter, r *http.Request) {
	result, err := h.messageUc.MarkAsRead(r.Context(), callerId(r), chi.URLParam(r, "senderId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"success":      true,
		"updatedCount": result.UpdatedCount,
		"unreadCount":  result.UnreadCount,
	})
}

// Method Get /messages/unread
func (h *HttpHandler) GetUnreadCounts(w http.ResponseWriter, r *http.Request) {
	summary, err := h.messageUc.UnreadCounts(r.Context(), callerId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, summary)
}

// Method Get /notifications
func (h *HttpHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notificationUc.GetNotifications(r.Context(), callerId(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// Method Post /notifications/read-all
func (h *HttpHandler) MarkAllNotificationsAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationUc.MarkAllAsRead(r.Context(), callerId(r)); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"success": true})
}

// Method Post /notifications/:notificationId/read
func (h *HttpHandler) MarkNotificationAsRead(w http.ResponseWriter, r *http.Request) {
	err := h.notificationUc.MarkAsRead(r.Context(), callerId(r), chi.URLParam(r, "notificationId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"success": true})
}

// Method Get /user/:id
func (h *HttpHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, user)
}
