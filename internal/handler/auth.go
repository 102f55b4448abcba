package handler

import (
	"net/http"

	"github.com/examhub/examhub/internal/apperr"
	"github.com/examhub/examhub/internal/auth"
	"github.com/examhub/examhub/internal/model"
)

type registerRequest struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, apperr.Validation("missing required fields"))
		return
	}
	if req.Role == "" {
		req.Role = model.RoleStudent
	}
	if !req.Role.Valid() {
		writeError(w, apperr.Validation("invalid role"))
		return
	}

	if existing, err := h.store.GetUserByUsername(req.Username); err != nil {
		writeError(w, err)
		return
	} else if existing != nil {
		writeError(w, apperr.Conflict("username already exists"))
		return
	}
	if existing, err := h.store.GetUserByEmail(req.Email); err != nil {
		writeError(w, err)
		return
	} else if existing != nil {
		writeError(w, apperr.Conflict("email already exists"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil || user == nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "User registered successfully",
		"access_token": token,
		"user":         user,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, apperr.Validation("missing username or password"))
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, apperr.Unauthorized("invalid username or password"))
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Login successful",
		"access_token": token,
		"user":         user,
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if user == nil {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
