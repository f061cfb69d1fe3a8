package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-programs/internal/core/services"
)

const maxImportBytes = 5 << 20

type DataHandler struct {
	svc *services.TrackerService
}

func NewDataHandler(svc *services.TrackerService) *DataHandler {
	return &DataHandler{
		svc: svc,
	}
}

func (h *DataHandler) RegisterRoutes(router *gin.RouterGroup, mutating ...gin.HandlerFunc) {
	data := router.Group("/data")
	{
		data.GET("/export", h.Export)
		data.POST("/import", append(append([]gin.HandlerFunc{}, mutating...), h.Import)...)
		data.POST("/reset", append(append([]gin.HandlerFunc{}, mutating...), h.Reset)...)
	}
}

func (h *DataHandler) Export(c *gin.Context) {
	res, err := h.svc.Export(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", res.Data)
}

// Import accepts the document either as the raw request body or as a
// multipart upload in the "file" field.
func (h *DataHandler) Import(c *gin.Context) {
	doc, err := readImportBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.svc.Import(c.Request.Context(), doc)
	if errors.Is(err, services.ErrInvalidImport) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         "invalid import file",
			"details":       err.Error(),
			"notifications": res.Notifications,
		})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *DataHandler) Reset(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Reset(c.Request.Context()))
}

func readImportBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file field: %w", err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	doc, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, errors.New("empty body")
	}
	return doc, nil
}
