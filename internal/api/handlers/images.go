package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rohits-web03/estately/internal/api/middleware"
	"github.com/rohits-web03/estately/internal/models"
	"github.com/rohits-web03/estately/internal/services"
	"github.com/rohits-web03/estately/internal/utils"
)

const (
	defaultMaxImageBytes = 2 << 20
	presignDuration      = 15 * time.Minute
)

type ImageHandler struct {
	images   *services.ImageService
	maxImage int64
}

// NewImageHandler caps each uploaded file at maxImageBytes; zero means 2 MiB.
func NewImageHandler(images *services.ImageService, maxImageBytes int64) *ImageHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = defaultMaxImageBytes
	}
	return &ImageHandler{images: images, maxImage: maxImageBytes}
}

func sizeLabel(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d KB", n>>10)
}

type uploadResponse struct {
	ImageURLs     []string `json:"imageUrls"`
	FailedUploads int      `json:"failedUploads"`
	Rejected      []string `json:"rejected"`
	Warnings      []string `json:"warnings"`
}

func formFile(fh *multipart.FileHeader) services.ImageFile {
	return services.ImageFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Upload godoc
// @Summary Upload listing images
// @Description Uploads in parallel, classifies every new image and drops the ones that are not property photos. Partial failures are reported as warnings.
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Param images formData file false "Images (max 2 MB each by default)"
// @Param existing formData []string false "Images already on the listing" collectionFormat(multi)
// @Param remove formData []string false "Existing images to drop first" collectionFormat(multi)
// @Success 200 {object} utils.Payload{data=uploadResponse}
// @Failure 400 {object} utils.Payload
// @Router /api/images/upload [post]
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxForm := models.MaxListingImages*h.maxImage + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxForm)
	if err := r.ParseMultipartForm(maxForm); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid image upload form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var files []services.ImageFile
	for _, fh := range r.MultipartForm.File["images"] {
		if fh.Size > h.maxImage {
			utils.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Each image must be less than %s!", sizeLabel(h.maxImage)))
			return
		}
		files = append(files, formFile(fh))
	}
	removals := r.MultipartForm.Value["remove"]
	if len(files) == 0 && len(removals) == 0 {
		utils.ErrorResponse(w, http.StatusBadRequest, "You must select at least one image!")
		return
	}

	ownerID := middleware.UserIDFrom(r.Context())
	p := h.images.NewPipeline(ownerID, r.MultipartForm.Value["existing"])
	submitted := false
	defer func() {
		if !submitted {
			p.Cancel(context.WithoutCancel(r.Context()))
		}
	}()

	for _, url := range removals {
		if err := p.Remove(r.Context(), url); err != nil {
			writeError(w, r, err)
			return
		}
	}

	var upload services.UploadReport
	if len(files) > 0 {
		var err error
		if upload, err = p.Upload(r.Context(), files); err != nil {
			writeError(w, r, err)
			return
		}
	}
	var classified services.ClassifyReport
	if p.State() == services.StateClassifying {
		var err error
		if classified, err = p.Classify(r.Context()); err != nil {
			writeError(w, r, services.Internal(err))
			return
		}
	}
	if err := r.Context().Err(); err != nil {
		return
	}
	urls, err := p.Submit()
	if err != nil {
		writeError(w, r, services.Internal(err))
		return
	}
	submitted = true

	resp := uploadResponse{
		ImageURLs:     urls,
		FailedUploads: upload.Failed,
		Rejected:      classified.Rejected,
		Warnings:      []string{},
	}
	if resp.Rejected == nil {
		resp.Rejected = []string{}
	}
	if upload.Failed > 0 {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("%d image(s) failed to upload!", upload.Failed))
	}
	if n := len(classified.Rejected); n > 0 {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("%d image(s) removed. Make sure each image is an appropriate property image!", n))
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: resp})
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Presign godoc
// @Summary Presigned URL for a direct image upload
// @Tags Images
// @Accept json
// @Produce json
// @Param body body presignRequest true "File to upload"
// @Success 200 {object} utils.Payload{data=services.PresignResult}
// @Failure 502 {object} utils.Payload
// @Router /api/images/presign [post]
func (h *ImageHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var in presignRequest
	if !decode(w, r, &in) {
		return
	}
	res, err := h.images.Presign(r.Context(), middleware.UserIDFrom(r.Context()), in.Filename, in.ContentType, presignDuration)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Data: res})
}

type completeRequest struct {
	URL string `json:"url"`
}

// Complete godoc
// @Summary Confirm a presigned upload
// @Description Checks that the object exists and is a property photo. Rejected images are deleted.
// @Tags Images
// @Accept json
// @Produce json
// @Param body body completeRequest true "Uploaded image"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/images/complete [post]
func (h *ImageHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var in completeRequest
	if !decode(w, r, &in) {
		return
	}
	if err := h.images.Complete(r.Context(), middleware.UserIDFrom(r.Context()), in.URL); err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success:    true,
		StatusCode: http.StatusOK,
		Data:       map[string]string{"imageUrl": in.URL},
	})
}

type discardRequest struct {
	ImageURLs []string `json:"imageUrls"`
}

// Discard godoc
// @Summary Discard uploaded images that were never saved
// @Tags Images
// @Accept json
// @Produce json
// @Param body body discardRequest true "Images to discard"
// @Success 202 {object} utils.Payload
// @Router /api/images/discard [post]
func (h *ImageHandler) Discard(w http.ResponseWriter, r *http.Request) {
	var in discardRequest
	if !decode(w, r, &in) {
		return
	}
	n := h.images.Discard(r.Context(), middleware.UserIDFrom(r.Context()), in.ImageURLs)
	utils.JSONResponse(w, http.StatusAccepted, utils.Payload{
		Success:    true,
		StatusCode: http.StatusAccepted,
		Message:    fmt.Sprintf("%d image(s) scheduled for deletion", n),
	})
}

// Delete godoc
// @Summary Delete one uploaded image
// @Tags Images
// @Produce json
// @Param url query string true "Image URL"
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/images [delete]
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		utils.ErrorResponse(w, http.StatusBadRequest, "Missing image url")
		return
	}
	if err := h.images.Delete(r.Context(), middleware.UserIDFrom(r.Context()), url); err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, StatusCode: http.StatusOK, Message: "Image deleted"})
}
