package handlers

import (
	"net/http"

	"github.com/rohits-web03/estately/internal/api/middleware"
	"github.com/rohits-web03/estately/internal/services"
	"github.com/rohits-web03/estately/internal/utils"
)

type UserHandler struct {
	users   *services.UserService
	cookies Cookies
}

func NewUserHandler(users *services.UserService, cookies Cookies) *UserHandler {
	return &UserHandler{users: users, cookies: cookies}
}

// RequireSelf refuses requests for an {id} other than the session user.
func (h *UserHandler) RequireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.users.CanUpdate(r.PathValue("id"), middleware.UserIDFrom(r.Context())); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Update godoc
// @Summary Update your profile
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body services.ProfileUpdate true "Fields to change"
// @Success 200 {object} utils.Payload{data=models.User}
// @Failure 401 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Router /api/user/update/{id} [patch]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd services.ProfileUpdate
	if !decode(w, r, &upd) {
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), r.PathValue("id"), middleware.UserIDFrom(r.Context()), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: user})
}

type deleteAccountResponse struct {
	ImageURLsToDelete []string `json:"imageUrlsToDelete"`
	Message           string   `json:"message"`
}

// Delete godoc
// @Summary Delete your account and listings
// @Description Clears the session cookie. Listing images are purged in the background.
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} deleteAccountResponse
// @Failure 401 {object} utils.Payload
// @Router /api/user/delete/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	urls, err := h.users.DeleteAccount(r.Context(), r.PathValue("id"), middleware.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cookies.Clear(w)
	utils.WriteJSON(w, http.StatusOK, deleteAccountResponse{
		ImageURLsToDelete: urls,
		Message:           "Account deleted successfully!",
	})
}

// Listings godoc
// @Summary Your listings, most recently updated first
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} utils.Payload{data=[]models.Listing}
// @Failure 401 {object} utils.Payload
// @Router /api/user/listings/{id} [get]
func (h *UserHandler) Listings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.users.GetUserListings(r.Context(), r.PathValue("id"), middleware.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: listings})
}

// Get godoc
// @Summary Public profile of a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} utils.Payload{data=models.User}
// @Failure 404 {object} utils.Payload
// @Router /api/user/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetPublicProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: user})
}
