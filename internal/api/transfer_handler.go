package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"projtrack/internal/apperr"
	"projtrack/internal/notify"
	"projtrack/internal/service/transfer"
	"projtrack/internal/spreadsheet"

	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// 上传大小上限
	maxUploadBytes = 10 << 20
)

type TransferHandler struct {
	responder
	transfer *transfer.Service
}

func NewTransferHandler(svc *transfer.Service, notifier *notify.Notifier) *TransferHandler {
	return &TransferHandler{responder: responder{notifier: notifier}, transfer: svc}
}

// upload returns the multipart "file" field, or the raw body when the
// request is not multipart.
func (h *TransferHandler) upload(c *gin.Context, op, fallbackName string) (io.Reader, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			h.fail(c, op, apperr.Import(err, "Erro ao ler arquivo"))
			return nil, "", false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.fail(c, op, apperr.Import(err, "Erro ao ler arquivo"))
			return nil, "", false
		}
		return bytes.NewReader(data), fh.Filename, true
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil || len(data) == 0 {
		h.fail(c, op, apperr.Validation("Nenhum arquivo enviado"))
		return nil, "", false
	}
	name := c.Query("filename")
	if name == "" {
		name = fallbackName
	}
	return bytes.NewReader(data), name, true
}

// Import handles POST /api/import
func (h *TransferHandler) Import(c *gin.Context) {
	r, name, ok := h.upload(c, "import", "import.xlsx")
	if !ok {
		return
	}
	res, err := h.transfer.ImportWorkbook(c.Request.Context(), r, name)
	if err != nil {
		h.fail(c, "import", err)
		return
	}
	h.success(c, http.StatusOK, "Dados importados com sucesso!", gin.H{"result": res})
}

// Export handles GET /api/export
func (h *TransferHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.transfer.ExportWorkbook(&buf); err != nil {
		h.fail(c, "export", err)
		return
	}
	attachment(c, h.transfer.ExportFilename(), xlsxContentType, buf.Bytes())
}

// Template handles GET /api/template
func (h *TransferHandler) Template(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.transfer.Template(&buf); err != nil {
		h.fail(c, "template", err)
		return
	}
	attachment(c, spreadsheet.TemplateFilename, xlsxContentType, buf.Bytes())
}

// Backup handles GET /api/backup
func (h *TransferHandler) Backup(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.transfer.WriteBackup(&buf); err != nil {
		h.fail(c, "backup", err)
		return
	}
	attachment(c, h.transfer.BackupFilename(), "application/json", buf.Bytes())
}

// Restore handles POST /api/restore
func (h *TransferHandler) Restore(c *gin.Context) {
	r, _, ok := h.upload(c, "restore", "backup.json")
	if !ok {
		return
	}
	res, err := h.transfer.Restore(c.Request.Context(), r)
	if err != nil {
		h.fail(c, "restore", err)
		return
	}
	h.success(c, http.StatusOK, "Backup importado com sucesso!", gin.H{"result": res})
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
