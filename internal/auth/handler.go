package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"securityapi/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type rateLimitedResponse struct {
	Message                  string `json:"message"`
	RemainingLockTimeSeconds int64  `json:"remainingLockTimeSeconds"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	if msg := validationMessage(body); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		var limited ErrRateLimited
		if errors.As(err, &limited) {
			retryAfter := limited.RemainingSeconds()
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{
				Message:                  "Account temporarily locked due to too many failed login attempts",
				RemainingLockTimeSeconds: limited.RemainingSeconds(),
			})
			return
		}
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}

		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	body.Email = strings.TrimSpace(body.Email)
	if msg := validationMessage(body); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.service.Register(r.Context(), body.Username, body.Email, body.Password); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			writeError(w, http.StatusConflict, "Error: Username is already taken!")
		case errors.Is(err, ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "Error: Email is already in use!")
		case errors.Is(err, ErrPasswordTooLong):
			writeError(w, http.StatusBadRequest, passwordTooLongMessage)
		default:
			observability.CaptureError(err)
			writeError(w, http.StatusInternalServerError, "failed to register")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully!"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
