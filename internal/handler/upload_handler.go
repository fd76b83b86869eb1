package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/askdoc/askdoc/internal/filestore"
	"github.com/askdoc/askdoc/internal/pkg/errcode"
	"github.com/askdoc/askdoc/internal/pkg/response"
	"github.com/askdoc/askdoc/internal/service"
)

type UploadHandler struct {
	uploads  *service.UploadService
	maxBytes int64
}

type uploadedFile struct {
	OriginalName string `json:"originalName"`
	StoragePath  string `json:"storagePath"`
}

type UploadResponse struct {
	Message string       `json:"message"`
	File    uploadedFile `json:"file"`
	JobID   string       `json:"jobId"`
}

func NewUploadHandler(uploads *service.UploadService, maxUploadMegabytes int) *UploadHandler {
	maxBytes := int64(maxUploadMegabytes) << 20
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &UploadHandler{uploads: uploads, maxBytes: maxBytes}
}

func (h *UploadHandler) UploadPDF(c *gin.Context) {
	file, err := c.FormFile("pdf")
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "pdf file is required")
		return
	}
	if file.Size > h.maxBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, errcode.ErrInvalidFile, "file too large")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	contentType, err := sniffContentType(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	if !strings.HasPrefix(contentType, "application/pdf") {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "only PDF uploads are accepted")
		return
	}

	doc, job, err := h.uploads.Upload(c.Request.Context(), file.Filename, contentType, opened, file.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, UploadResponse{
		Message: "uploaded",
		File: uploadedFile{
			OriginalName: doc.OriginalName,
			StoragePath:  doc.StoragePath,
		},
		JobID: job.ID,
	})
}

func sniffContentType(file filestore.ReadSeekCloser) (string, error) {
	buf := make([]byte, 512)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:read]), nil
}
