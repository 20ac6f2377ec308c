package handlers

import (
	"net/http"

	"github.com/rohits-web03/estately/internal/api/middleware"
	"github.com/rohits-web03/estately/internal/services"
	"github.com/rohits-web03/estately/internal/utils"
)

type ListingHandler struct {
	listings *services.ListingService
}

func NewListingHandler(listings *services.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// RequireOwner refuses non-owners of the {id} listing before the body is
// read, so they never see validation results.
func (h *ListingHandler) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.listings.CanUpdate(r.Context(), r.PathValue("id"), middleware.UserIDFrom(r.Context())); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Create godoc
// @Summary Create a listing
// @Description The owner is always the session user.
// @Tags Listings
// @Accept json
// @Produce json
// @Param body body services.ListingInput true "Listing"
// @Success 201 {object} utils.Payload{data=models.Listing}
// @Failure 401 {object} utils.Payload
// @Failure 422 {object} utils.Payload
// @Router /api/listing/create [post]
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ListingInput
	if !decode(w, r, &in) {
		return
	}
	listing, err := h.listings.Create(r.Context(), middleware.UserIDFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success:    true,
		StatusCode: http.StatusCreated,
		Data:       listing,
	})
}

// Update godoc
// @Summary Replace a listing's fields
// @Tags Listings
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Param body body services.ListingInput true "Listing"
// @Success 200 {object} utils.Payload{data=models.Listing}
// @Failure 401 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/listing/update/{id} [patch]
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.ListingInput
	if !decode(w, r, &in) {
		return
	}
	listing, err := h.listings.Update(r.Context(), r.PathValue("id"), middleware.UserIDFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: listing})
}

// Delete godoc
// @Summary Delete a listing
// @Description Returns the caller's remaining listings.
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} utils.Payload{data=[]models.Listing}
// @Failure 401 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/listing/delete/{id} [delete]
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	remaining, err := h.listings.Delete(r.Context(), r.PathValue("id"), middleware.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    "Listing has been deleted!",
		Data:       remaining,
	})
}

// Get godoc
// @Summary Get a listing
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} utils.Payload{data=models.Listing}
// @Failure 404 {object} utils.Payload
// @Router /api/listing/get/{id} [get]
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: listing})
}

// Search godoc
// @Summary Search listings
// @Tags Listings
// @Produce json
// @Param searchTerm query string false "Title substring, case-insensitive"
// @Param type query string false "all, sale or rent"
// @Param parking query bool false "Only with parking"
// @Param furnished query bool false "Only furnished"
// @Param offer query bool false "Only on offer"
// @Param minPrice query int false "Minimum effective price"
// @Param maxPrice query int false "Maximum effective price"
// @Param sort query string false "createdAt or regularPrice"
// @Param order query string false "asc or desc"
// @Param limit query int false "Page size (1-100)"
// @Param startIndex query int false "Offset"
// @Success 200 {object} utils.Payload{data=services.SearchResult}
// @Failure 422 {object} utils.Payload
// @Router /api/listing/search [get]
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.listings.Search(r.Context(), services.SearchFilterFromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: result})
}
