package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// attachmentsField is the multipart field carrying uploaded documents
const attachmentsField = "attachments"

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// multipartExtras reads the parts of a multipart reservation form that form
// binding cannot: the stacks JSON field and the uploaded files
func multipartExtras(c *gin.Context) ([]StackBody, []appledger.AttachmentFile, error) {
	var stacks []StackBody
	if raw := strings.TrimSpace(c.PostForm("stacks")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &stacks); err != nil {
			return nil, nil, fmt.Errorf("stacks must be a JSON array: %w", err)
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, err
	}
	headers := form.File[attachmentsField]
	files := make([]appledger.AttachmentFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, toAttachmentFile(fh))
	}
	return stacks, files, nil
}

func toAttachmentFile(fh *multipart.FileHeader) appledger.AttachmentFile {
	return appledger.AttachmentFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
