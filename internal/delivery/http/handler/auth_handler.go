package handler

import (
	"net/http"
	"sync"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/service"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/pkg/response"

	"github.com/google/uuid"
)

// AuthURLBuilder builds the external provider's consent URL.
type AuthURLBuilder interface {
	AuthURL(state string) string
}

// AuthHandler drives the calendar authorization flow: redirect to the
// provider's consent page, then exchange the returned code for credentials.
type AuthHandler struct {
	tokenService *service.TokenService
	authURL      AuthURLBuilder

	mu            sync.Mutex
	expectedState string
}

func NewAuthHandler(tokenService *service.TokenService, authURL AuthURLBuilder) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		authURL:      authURL,
	}
}

func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	h.mu.Lock()
	h.expectedState = state
	h.mu.Unlock()

	http.Redirect(w, r, h.authURL.AuthURL(state), http.StatusFound)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	h.mu.Lock()
	expected := h.expectedState
	h.expectedState = ""
	h.mu.Unlock()

	if expected == "" || query.Get("state") != expected {
		response.Error(w, http.StatusBadRequest, "Invalid or expired authorization state", nil)
		return
	}

	code := query.Get("code")
	if code == "" {
		response.Error(w, http.StatusBadRequest, "Missing authorization code", nil)
		return
	}

	if err := h.tokenService.StoreAuthCode(r.Context(), code); err != nil {
		response.Error(w, http.StatusBadGateway, "Authorization failed", nil)
		return
	}

	response.Success(w, http.StatusOK, "Calendar authorized successfully", nil)
}
