package http

import (
	"crypto/subtle"
	"net/http"

	"boardtalk/internal/usecase"
)

const CronSecretHeader = "X-Cron-Secret"

// CronHandler exposes the deadline scan to the external scheduler. An empty
// secret rejects every caller.
type CronHandler struct {
	deadlineUc usecase.DeadlineUsecase
	secret     string
}

func NewCronHandler(deadlineUc usecase.DeadlineUsecase, secret string) *CronHandler {
	return &CronHandler{
		deadlineUc: deadlineUc,
		secret:     secret,
	}
}

// Method Get|Post /cron/check-deadlines
func (h *CronHandler) CheckDeadlines(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeUnauthorized(w)
		return
	}

	result, err := h.deadlineUc.Scan(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, result)
}

func (h *CronHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	given := r.Header.Get(CronSecretHeader)
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) == 1
}
