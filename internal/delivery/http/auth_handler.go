package http

import (
	"net/http"

	"boardtalk/internal/entity"
	"boardtalk/internal/usecase"
)

type AuthHandler struct {
	authUc usecase.AuthUsecase
}

func NewAuthHandler(authUc usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{
		authUc: authUc,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entity.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}

	authResponse, err := h.authUc.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, authResponse)
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entity.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}

	authResponse, err := h.authUc.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, authResponse)
}
