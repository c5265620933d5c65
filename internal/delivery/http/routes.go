package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	Http           *HttpHandler
	Auth           *AuthHandler
	Cron           *CronHandler
	Websocket      http.Handler
	AuthMiddleware *AuthMiddleware
}

func MapHttpRoutes(r chi.Router, h Handlers) {
	// Authenticates itself from the token query parameter
	r.Handle("/ws", h.Websocket)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
	})

	r.Route("/cron", func(r chi.Router) {
		r.Get("/check-deadlines", h.Cron.CheckDeadlines)
		r.Post("/check-deadlines", h.Cron.CheckDeadlines)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware.Authenticate)

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", h.Http.SendMessage)
			r.Post("/attachment", h.Http.SendMessageWithAttachment)
			r.Get("/unread", h.Http.GetUnreadCounts)
			r.Get("/{recipientId}", h.Http.GetMessages)
			r.Post("/{senderId}/read", h.Http.MarkMessagesAsRead)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.Http.GetNotifications)
			r.Post("/read-all", h.Http.MarkAllNotificationsAsRead)
			r.Post("/{notificationId}/read", h.Http.MarkNotificationAsRead)
		})

		r.Get("/user/{id}", h.Http.GetUser)
	})
}
