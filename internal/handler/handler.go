package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"submissionportal/internal/errdefs"
	"submissionportal/internal/model"
)

type AccountService interface {
	Register(ctx context.Context, input *model.RegisterInput) (*model.Account, error)
	Login(ctx context.Context, input *model.LoginInput) (*model.Session, error)
	GetMe(ctx context.Context) (*model.Account, error)
}

type AccountHandler struct {
	service AccountService
}

func NewAccountHandler(service AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(authMiddleware).Get("/student", h.GetStudent)
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input model.RegisterInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err, mapErr(err))
		return
	}

	account, err := h.service.Register(r.Context(), &input)
	if err != nil {
		writeError(w, r, err, mapErr(err))
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input model.LoginInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err, mapErr(err))
		return
	}

	session, err := h.service.Login(r.Context(), &input)
	if err != nil {
		writeError(w, r, err, mapErr(err))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GetStudent answers 401 when the token is valid but its account is gone.
func (h *AccountHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetMe(r.Context())
	if err != nil {
		statusCode := mapErr(err)
		if errors.Is(err, errdefs.ErrNotFound) {
			statusCode = http.StatusUnauthorized
		}
		writeError(w, r, err, statusCode)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeErrorJSON(w, http.StatusNotFound, "not found")
}

func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
}
