package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/rohits-web03/estately/internal/api/middleware"
	"github.com/rohits-web03/estately/internal/services"
	"github.com/rohits-web03/estately/internal/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type AuthHandler struct {
	auth      *services.AuthService
	cookies   Cookies
	oauth     *oauth2.Config
	state     *StateSigner
	clientURL string
	// userInfoURL is overridden in tests.
	userInfoURL string
}

// NewAuthHandler builds the auth endpoints. oauth may be nil when Google
// OAuth is not configured; the redirect flow then answers 404.
func NewAuthHandler(auth *services.AuthService, cookies Cookies, oauth *oauth2.Config, state *StateSigner, clientURL string) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		cookies:     cookies,
		oauth:       oauth,
		state:       state,
		clientURL:   strings.TrimRight(clientURL, "/"),
		userInfoURL: googleUserInfoURL,
	}
}

// SignUp godoc
// @Summary Create an account
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.SignUpInput true "New account"
// @Success 201 {object} utils.Payload{data=models.User}
// @Failure 409 {object} utils.Payload
// @Failure 422 {object} utils.Payload
// @Router /api/auth/sign-up [post]
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in services.SignUpInput
	if !decode(w, r, &in) {
		return
	}
	user, err := h.auth.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success:    true,
		StatusCode: http.StatusCreated,
		Message:    "User created successfully!",
		Data:       user,
	})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, s services.Session) {
	h.cookies.Set(w, s.Token, s.ExpiresAt)
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success:    true,
		StatusCode: http.StatusOK,
		Data:       s.User,
	})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn godoc
// @Summary Sign in with email and password
// @Description Sets the jwt session cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body credentials true "Credentials"
// @Success 200 {object} utils.Payload{data=models.User}
// @Failure 401 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/auth/sign-in [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decode(w, r, &in) {
		return
	}
	session, err := h.auth.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, r, session)
}

// GoogleSignIn godoc
// @Summary Sign in with a federated profile
// @Description Creates the account on first use. idToken is required when identity verification is enabled.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.ProviderProfile true "Provider profile"
// @Success 200 {object} utils.Payload{data=models.User}
// @Failure 401 {object} utils.Payload
// @Router /api/auth/google-sign-in [post]
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var p services.ProviderProfile
	if !decode(w, r, &p) {
		return
	}
	session, err := h.auth.SignInWithProvider(r.Context(), p, services.MethodProvider)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, r, session)
}

// SignOut godoc
// @Summary Clear the session cookie
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/auth/sign-out [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    "User has been logged out!",
	})
}

// Me godoc
// @Summary Current session user
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.Payload{data=models.User}
// @Failure 401 {object} utils.Payload
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: user})
}

// safeRedirect keeps only same-origin client paths.
func safeRedirect(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return "/"
	}
	return path
}

// GoogleLogin godoc
// @Summary Start the Google OAuth flow
// @Tags Auth
// @Param redirect query string false "Client path to return to"
// @Success 307
// @Router /api/auth/google/login [get]
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		utils.ErrorResponse(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}
	state, err := h.state.Generate(safeRedirect(r.URL.Query().Get("redirect")))
	if err != nil {
		writeError(w, r, services.Internal(err))
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

type googleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (h *AuthHandler) fetchGoogleUser(ctx context.Context, code string) (googleUser, error) {
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return googleUser{}, fmt.Errorf("code exchange: %w", err)
	}
	resp, err := h.oauth.Client(ctx, token).Get(h.userInfoURL)
	if err != nil {
		return googleUser{}, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleUser{}, fmt.Errorf("get user info: status %d", resp.StatusCode)
	}
	var u googleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return googleUser{}, fmt.Errorf("parse user info: %w", err)
	}
	if u.Email == "" {
		return googleUser{}, fmt.Errorf("user info has no email")
	}
	return u, nil
}

// GoogleCallback godoc
// @Summary Finish the Google OAuth flow
// @Description Signs the user in, sets the jwt cookie and redirects to the client.
// @Tags Auth
// @Param state query string true "Signed state"
// @Param code query string true "Authorization code"
// @Success 307
// @Router /api/auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		utils.ErrorResponse(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}
	redirect, err := h.state.Decode(r.FormValue("state"))
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	fail := h.clientURL + "/sign-in?error=oauth_failed"

	gu, err := h.fetchGoogleUser(r.Context(), r.FormValue("code"))
	if err != nil {
		slog.WarnContext(r.Context(), "google oauth failed", "error", err)
		http.Redirect(w, r, fail, http.StatusTemporaryRedirect)
		return
	}
	session, err := h.auth.SignInWithProvider(r.Context(), services.ProviderProfile{
		Username: gu.Name,
		Email:    gu.Email,
		PhotoURL: gu.Picture,
	}, services.MethodOAuth)
	if err != nil {
		slog.WarnContext(r.Context(), "google oauth sign-in failed", "error", err)
		http.Redirect(w, r, fail, http.StatusTemporaryRedirect)
		return
	}
	h.cookies.Set(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, h.clientURL+redirect, http.StatusTemporaryRedirect)
}
