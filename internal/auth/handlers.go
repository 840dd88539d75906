package auth

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"facility-checklist/internal/models"
	"facility-checklist/internal/storage"
)

type Handler struct {
	storage *storage.Storage
	tokens  *TokenManager
	log     *zap.Logger
}

func NewHandler(store *storage.Storage, tokens *TokenManager, log *zap.Logger) *Handler {
	return &Handler{storage: store, tokens: tokens, log: log}
}

// Register creates a user account
// @Summary Register a user
// @Description Creates a user with a bcrypt-hashed password. Accepts JSON or form bodies.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.Credentials true "Username and password"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string "Malformed body"
// @Failure 409 {object} map[string]string "Username already registered"
// @Failure 422 {object} map[string]string "Invalid username or password"
// @Router /register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	creds, err := bindCredentials(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if creds.Username, err = ValidateCredentials(creds.Username, creds.Password); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx := r.Context()
	if _, err := h.storage.GetUserByUsername(ctx, creds.Username); err == nil {
		respondError(w, http.StatusConflict, "Username already registered")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.log.Error("register: load user", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	hash, err := HashPassword(creds.Password)
	if err != nil {
		h.log.Error("register: hash password", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.storage.CreateUser(ctx, creds.Username, hash)
	if errors.Is(err, storage.ErrDuplicate) {
		respondError(w, http.StatusConflict, "Username already registered")
		return
	}
	if err != nil {
		h.log.Error("register: create user", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.log.Info("User registered", zap.String("username", user.Username))
	respondJSON(w, http.StatusCreated, map[string]any{
		"msg":      "User registered successfully.",
		"username": user.Username,
	})
}

// Login authenticates a user and returns a bearer token
// @Summary User login
// @Description Verifies form-encoded credentials (JSON also accepted) and issues a JWT.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} map[string]interface{} "access_token, token_type, expires_in"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 429 {string} string "rate limit exceeded"
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := bindCredentials(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	user, err := h.storage.GetUserByUsername(r.Context(), creds.Username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.log.Error("login: load user", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		burnCompare(creds.Password)
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !CheckPassword(user.PasswordHash, creds.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.GenerateToken(user.Username)
	if err != nil {
		h.log.Error("login: sign token", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.tokens.TTL().Seconds()),
	})
}

// Me returns the current authenticated user
// @Summary Get current user
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{} "User data"
// @Failure 401 {object} map[string]string "Could not validate credentials"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	user, err := h.storage.GetUserByUsername(r.Context(), username)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.log.Error("me: load user", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"username":   user.Username,
		"created_at": user.CreatedAt,
	})
}

func bindCredentials(r *http.Request) (models.Credentials, error) {
	var creds models.Credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&creds)
		return creds, err
	}

	if err := r.ParseForm(); err != nil {
		return creds, err
	}
	creds.Username = r.PostForm.Get("username")
	creds.Password = r.PostForm.Get("password")
	return creds, nil
}
