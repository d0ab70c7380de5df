package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/artifact"
	"github.com/restoreq/restoreq/internal/domain"
	"github.com/restoreq/restoreq/internal/httpapi/response"
	"github.com/restoreq/restoreq/internal/imaging"
	"github.com/restoreq/restoreq/internal/photostore"
)

const maxUploadBytes = 50 << 20 // 50 MiB per file, per §6

var allowedPhotoExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".tiff": true, ".bmp": true,
}

type PhotoHandler struct {
	photos *photostore.Store
	store  artifact.Store
}

func NewPhotoHandler(photos *photostore.Store, store artifact.Store) *PhotoHandler {
	return &PhotoHandler{photos: photos, store: store}
}

// Upload implements POST /photos (multipart, field "photos", ≤20
// files, 50 MiB/file, extension-restricted per §6).
func (h *PhotoHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("no files under field \"photos\""))
		return
	}
	if len(files) > 20 {
		response.Error(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("at most 20 files per upload"))
		return
	}

	out := make([]*photoDTO, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxUploadBytes {
			response.Error(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("%s exceeds 50 MiB", fh.Filename))
			return
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !allowedPhotoExt[ext] {
			response.Error(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("%s has unsupported extension", fh.Filename))
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid_argument", err)
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid_argument", err)
			return
		}

		_, stored, err := h.store.NewUpload(content, ext)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "internal", err)
			return
		}
		p := h.photos.Add(stored, fh.Filename)
		out = append(out, toPhotoDTO(p, h.store))
	}
	response.OK(c, out)
}

func (h *PhotoHandler) List(c *gin.Context) {
	list := h.photos.List()
	out := make([]*photoDTO, 0, len(list))
	for _, p := range list {
		out = append(out, toPhotoDTO(p, h.store))
	}
	response.OK(c, out)
}

func (h *PhotoHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	if p, ok := h.photos.Delete(id); ok {
		_ = h.store.Delete(filepath.Join(h.store.UploadsDir(), p.StoredFilename))
	}
	response.OK(c, gin.H{"ok": true})
}

func (h *PhotoHandler) Clear(c *gin.Context) {
	for _, p := range h.photos.Clear() {
		_ = h.store.Delete(filepath.Join(h.store.UploadsDir(), p.StoredFilename))
	}
	response.OK(c, gin.H{"ok": true})
}

type importRequest struct {
	ResultPath string `json:"resultPath"`
}

// Import implements POST /photos/import: copies a /results/... or
// /uploads/... artifact into uploads as a brand new photo.
func (h *PhotoHandler) Import(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	path, ok := h.store.PathForURL(req.ResultPath)
	if !ok {
		response.Error(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("resultPath %q is not under /uploads or /results", req.ResultPath))
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		response.Error(c, http.StatusNotFound, "not_found", err)
		return
	}
	_, stored, err := h.store.NewUpload(content, filepath.Ext(path))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "internal", err)
		return
	}
	p := h.photos.Add(stored, filepath.Base(path))
	response.OK(c, toPhotoDTO(p, h.store))
}

type cropRequest struct {
	CropRect string `json:"cropRect"`
}

// Crop implements POST /photos/:id/crop: applies the crop synchronously
// and returns a brand new photo, leaving the original untouched.
func (h *PhotoHandler) Crop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	photo, ok := h.photos.Get(id)
	if !ok {
		response.Error(c, http.StatusNotFound, "not_found", fmt.Errorf("photo %s", id))
		return
	}
	var req cropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	rect, err := imaging.ParseRect(req.CropRect)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}

	srcPath := filepath.Join(h.store.UploadsDir(), photo.StoredFilename)
	content, err := os.ReadFile(srcPath)
	if err != nil {
		response.Error(c, http.StatusNotFound, "not_found", err)
		return
	}
	cropped, err := imaging.Apply(content, rect)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}

	_, stored, err := h.store.NewUpload(cropped, ".png")
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "internal", err)
		return
	}
	newPhoto := h.photos.Add(stored, photo.DisplayName)
	response.OK(c, toPhotoDTO(newPhoto, h.store))
}

// AutoCrop implements GET /auto-crop/:photoId.
func (h *PhotoHandler) AutoCrop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	photo, ok := h.photos.Get(id)
	if !ok {
		response.Error(c, http.StatusNotFound, "not_found", fmt.Errorf("photo %s", id))
		return
	}
	content, err := os.ReadFile(filepath.Join(h.store.UploadsDir(), photo.StoredFilename))
	if err != nil {
		response.Error(c, http.StatusNotFound, "not_found", err)
		return
	}
	rect, err := imaging.AutoCropBounds(content)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	response.OK(c, gin.H{"x": rect.X, "y": rect.Y, "w": rect.W, "h": rect.H})
}

type photoDTO struct {
	ID             uuid.UUID `json:"id"`
	StoredFilename string    `json:"storedFilename"`
	DisplayName    string    `json:"displayName"`
	URL            string    `json:"url"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toPhotoDTO(p *domain.Photo, store artifact.Store) *photoDTO {
	return &photoDTO{
		ID:             p.ID,
		StoredFilename: p.StoredFilename,
		DisplayName:    p.DisplayName,
		URL:            store.URLFor(filepath.Join(store.UploadsDir(), p.StoredFilename)),
		CreatedAt:      p.CreatedAt,
	}
}
