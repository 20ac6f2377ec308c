package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rohits-web03/estately/internal/api/middleware"
	"github.com/rohits-web03/estately/internal/services"
	"github.com/rohits-web03/estately/internal/utils"
)

// writeError renders a service error. Internal and upstream causes are
// logged, never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := services.AsAppError(err)
	if appErr.Err != nil {
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.RequestIDFrom(r.Context()),
			"path", r.URL.Path,
			"kind", appErr.Kind,
			"error", appErr.Err,
		)
	}
	utils.ErrorResponse(w, appErr.Status, appErr.Message)
}

// decode reads a body that the validation middleware already checked.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid input")
		return false
	}
	return true
}

// Cookies writes and clears the session cookie.
type Cookies struct {
	Production bool
}

func (c Cookies) sameSite() http.SameSite {
	if c.Production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (c Cookies) Set(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		Secure:   c.Production,
		HttpOnly: true,
		SameSite: c.sameSite(),
	})
}

func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.Production,
		HttpOnly: true,
		SameSite: c.sameSite(),
	})
}
