package post

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"strings"
	"unicode/utf8"

	"securityapi/internal/auth"
	"securityapi/internal/observability"
)

const (
	maxJSONBodyBytes = 1 << 20
	maxTitleLength   = 200
	maxContentLength = 1000
)

// Store is the subset of Repository the handlers use.
type Store interface {
	ListAll(ctx context.Context) ([]Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]Post, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)
	Create(ctx context.Context, authorID, authorUsername string, input PostInput) (Post, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type listResponse struct {
	Posts      []Post `json:"posts"`
	TotalPosts int    `json:"totalPosts"`
}

type profileResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	TotalPosts int    `json:"totalPosts"`
}

// ListAll serves every post, newest first.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.ListAll(r.Context())
	if err != nil {
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Posts: posts, TotalPosts: len(posts)})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	posts, err := h.store.ListByAuthor(r.Context(), user.ID)
	if err != nil {
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Posts: posts, TotalPosts: len(posts)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.store.Create(r.Context(), user.ID, user.Username, input)
	if err != nil {
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully",
		"post":    p,
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	total, err := h.store.CountByAuthor(r.Context(), user.ID)
	if err != nil {
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		TotalPosts: total,
	})
}

// parseInput validates lengths on the raw text and HTML-escapes it for storage.
func parseInput(w http.ResponseWriter, r *http.Request) (PostInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input PostInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return PostInput{}, false
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)

	if input.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return PostInput{}, false
	}
	if !utf8.ValidString(input.Title) || utf8.RuneCountInString(input.Title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "Title must not exceed 200 characters")
		return PostInput{}, false
	}
	if input.Content == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return PostInput{}, false
	}
	if !utf8.ValidString(input.Content) || utf8.RuneCountInString(input.Content) > maxContentLength {
		writeError(w, http.StatusBadRequest, "Content must not exceed 1000 characters")
		return PostInput{}, false
	}

	input.Title = html.EscapeString(input.Title)
	input.Content = html.EscapeString(input.Content)

	return input, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
