package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/entity"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// uploadSourcePrefix marks records whose scratch copy no longer exists.
	uploadSourcePrefix = "upload://"
)

// DocumentService is what the HTTP surface needs from the processor.
type DocumentService interface {
	Process(ctx context.Context, path string, force bool) (*entity.Record, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Record, error)
	ListNeedingVerification(ctx context.Context, limit int) ([]*entity.Record, error)
	List(ctx context.Context, limit int) ([]*entity.Record, error)
}

// Exporter renders records as an XLSX workbook.
type Exporter interface {
	ExportStoredXLSX(ctx context.Context, onlyReview bool, limit int) ([]byte, error)
}

// DocumentHandler handles document upload and lookup endpoints.
type DocumentHandler struct {
	docs        DocumentService
	exporter    Exporter
	uploadDir   string
	maxUploadMB int64
	logger      *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler. An empty uploadDir uses
// the system temp directory.
func NewDocumentHandler(docs DocumentService, exporter Exporter, uploadDir string, maxUploadMB int64, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &DocumentHandler{docs: docs, exporter: exporter, uploadDir: uploadDir, maxUploadMB: maxUploadMB, logger: logger}
}

// Upload handles POST /api/v1/documents
// The multipart "file" is stored in a scratch directory for the duration of
// the request only.
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadMB<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				fmt.Sprintf("upload exceeds %d MB", h.maxUploadMB))
			return
		}
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "multipart field \"file\" is required")
		return
	}
	name := filepath.Base(filepath.Clean("/" + fh.Filename))
	if constants.MapExtToFormat(filepath.Ext(name)) == "" {
		RespondError(c, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, jpeg, png, tif, tiff, heic")
		return
	}
	force, _ := strconv.ParseBool(c.PostForm("force"))

	dir, err := os.MkdirTemp(h.uploadDir, "upload-*")
	if err != nil {
		HandleError(c, fmt.Errorf("create upload dir: %w", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			h.logger.Warn("removing upload dir failed", "dir", dir, "error", err)
		}
	}()

	dst := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		HandleError(c, fmt.Errorf("save upload: %w", err))
		return
	}

	ctx := common.WithSourceName(c.Request.Context(), uploadSourcePrefix+name)
	rec, cached, err := h.docs.Process(ctx, dst, force)
	if err != nil {
		HandleError(c, err)
		return
	}
	h.logger.Info("upload processed", "record_id", rec.ID, "filename", name, "deduplicated", cached)
	if cached {
		RespondOK(c, rec)
		return
	}
	RespondCreated(c, rec)
}

// GetByID handles GET /api/v1/documents/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}
	rec, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rec)
}

// List handles GET /api/v1/documents?needs_verification=true&limit=N
func (h *DocumentHandler) List(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	var (
		recs []*entity.Record
		err  error
	)
	if onlyReview(c) {
		recs, err = h.docs.ListNeedingVerification(c.Request.Context(), limit)
	} else {
		recs, err = h.docs.List(c.Request.Context(), limit)
	}
	if err != nil {
		HandleError(c, err)
		return
	}
	if recs == nil {
		recs = []*entity.Record{}
	}
	RespondList(c, recs, ListMeta{Count: len(recs), Limit: limit})
}

// Export handles GET /api/v1/documents/export?needs_verification=true
func (h *DocumentHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		RespondError(c, http.StatusNotImplemented, "NOT_CONFIGURED", "export is not configured")
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	buf, err := h.exporter.ExportStoredXLSX(c.Request.Context(), onlyReview(c), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="records.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf)
}

func onlyReview(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("needs_verification"))
	return v
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxListLimit {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
		return 0, false
	}
	return n, true
}
