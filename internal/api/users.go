package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"storefront-service/internal/auth"
	"storefront-service/internal/domain"
	"storefront-service/internal/logger"
)

// UserCreateInput is the registration payload. Role defaults to buyer.
type UserCreateInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=5"`
	Role     string `json:"role" validate:"omitempty,oneof=buyer seller admin"`
}

// LoginInput is the JSON form of the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshInput carries a refresh token.
type RefreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *HTTPHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var input UserCreateInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	role := domain.RoleBuyer
	if input.Role != "" {
		role = domain.Role(input.Role)
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		h.respondWithDomainError(w, r, err, "register user")
		return
	}

	created, err := h.userStore.CreateUser(r.Context(), &domain.User{
		Email:          input.Email,
		HashedPassword: hashed,
		Role:           role,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err, "register user")
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("user registered",
		zap.Int64("user_id", created.ID), zap.String("role", string(created.Role)))
	respondWithJSON(w, http.StatusCreated, created)
}

// Login accepts the OAuth2 password form (username, password) or a JSON
// body with email and password.
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !h.decodeAndValidate(w, r, &input) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid form payload: "+err.Error())
			return
		}
		input = LoginInput{Email: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
		if err := h.validate.Struct(input); err != nil {
			respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
			return
		}
	}

	pair, err := h.authn.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		h.respondWithDomainError(w, r, err, "log in")
		return
	}
	respondWithJSON(w, http.StatusOK, pair)
}

func (h *HTTPHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var input RefreshInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	token, err := h.authn.RotateRefreshToken(r.Context(), input.RefreshToken)
	if err != nil {
		h.respondWithDomainError(w, r, err, "refresh token")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"refresh_token": token, "token_type": "bearer"})
}

func (h *HTTPHandler) AccessToken(w http.ResponseWriter, r *http.Request) {
	var input RefreshInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	token, err := h.authn.NewAccessToken(r.Context(), input.RefreshToken)
	if err != nil {
		h.respondWithDomainError(w, r, err, "issue access token")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (h *HTTPHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, UserFromContext(r.Context()))
}
