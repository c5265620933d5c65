package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"

	"boardtalk/internal/usecase"

	"github.com/go-playground/validator/v10"
)

// Response carries either Data or Error, never both.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Encode response error: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Data: data})
}

// writeError maps an operation error onto its status code. Store failures
// are logged in full and reported generically.
func writeError(w http.ResponseWriter, err error) {
	kind := usecase.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case usecase.KindUnauthorized:
		status = http.StatusUnauthorized
	case usecase.KindValidation:
		status = http.StatusBadRequest
	case usecase.KindNotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		log.Printf("Request error: %v", err)
	}

	writeJSON(w, status, Response{Error: usecase.MessageOf(err), Kind: string(kind)})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, Response{Error: "Unauthorized"})
}

func writeValidation(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Response{Error: message, Kind: string(usecase.KindValidation)})
}

// decodeJSON reads the body into dst and runs its validate tags.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return errors.New("invalid request body")
	}
	return errors.New(fieldMessage(fieldErrors[0]))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
