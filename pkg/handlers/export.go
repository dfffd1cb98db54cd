package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
)

// SnapshotSource provides the read model the export endpoints render.
type SnapshotSource interface {
	Snapshot() models.WizardSnapshot
}

// ExportHandler serves downloadable artifacts built from the wizard state.
type ExportHandler struct {
	source SnapshotSource
	logger *zap.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(source SnapshotSource, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		source: source,
		logger: logger.Named("export-handler"),
	}
}

// RegisterRoutes registers the export handler's routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/wizard/export"

	mux.HandleFunc("GET "+base+"/"+services.CodeArchiveFilename, h.CodeArchive)
	mux.HandleFunc("GET "+base+"/"+services.ReadmeFilename, h.Readme)
	mux.HandleFunc("GET "+base+"/"+services.MappingReportFilename, h.MappingReport)
}

// CodeArchive handles GET /api/wizard/export/code.zip
func (h *ExportHandler) CodeArchive(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	if len(snap.CodeGeneration.GeneratedCodes) == 0 {
		if err := ErrorResponse(w, http.StatusNotFound, "no_generated_code", "No code has been generated yet"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	h.render(w, services.CodeArchiveFilename, "application/zip", func(out io.Writer) error {
		return services.WriteCodeArchive(out, &snap)
	})
}

// Readme handles GET /api/wizard/export/README.md
func (h *ExportHandler) Readme(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	h.render(w, services.ReadmeFilename, "text/markdown; charset=utf-8", func(out io.Writer) error {
		_, err := io.WriteString(out, services.RenderReadme(&snap))
		return err
	})
}

// MappingReport handles GET /api/wizard/export/mapping-report.xlsx
func (h *ExportHandler) MappingReport(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	h.render(w, services.MappingReportFilename,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		func(out io.Writer) error {
			return services.WriteMappingReport(out, &snap)
		})
}

// render buffers the artifact so a failure can still produce a JSON error.
func (h *ExportHandler) render(w http.ResponseWriter, filename, contentType string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.logger.Error("Failed to render export",
			zap.String("filename", filename),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "export_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("Failed to write export body", zap.String("filename", filename), zap.Error(err))
	}
}
