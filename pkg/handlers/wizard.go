package handlers

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/auth"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/tracker"
)

// MaxSchemaFileBytes caps the body of a schema file processing request.
const MaxSchemaFileBytes = 10 << 20

// ============================================================================
// Request/Response Types
// ============================================================================

// CreateProjectRequest for POST /api/wizard/project
type CreateProjectRequest struct {
	Name          string `json:"name"`
	SourceDialect string `json:"source_dialect"`
	TargetDialect string `json:"target_dialect"`
}

// FailProjectRequest for POST /api/wizard/project/fail
type FailProjectRequest struct {
	Reason string `json:"reason"`
}

// PhaseRequest for PUT /api/wizard/phase
type PhaseRequest struct {
	Phase models.Phase `json:"phase"`
}

// PhaseResponse for the phase endpoints.
type PhaseResponse struct {
	CurrentPhase models.Phase `json:"current_phase"`
	CanProceed   bool         `json:"can_proceed"`
}

// SetSchemaFilesRequest for PUT /api/wizard/files
type SetSchemaFilesRequest struct {
	SourceFiles []models.SchemaFile `json:"source_files"`
	TargetFiles []models.SchemaFile `json:"target_files"`
}

// CompleteDiscoveryRequest for POST /api/wizard/discovery/complete
type CompleteDiscoveryRequest struct {
	Graph *models.LineageGraph `json:"graph"`
}

// SelectTablePairRequest for PUT /api/wizard/mapping/pair
type SelectTablePairRequest struct {
	SourceTable string `json:"source_table"`
	TargetTable string `json:"target_table"`
}

// ManualMappingRequest for POST /api/wizard/mapping/manual
type ManualMappingRequest struct {
	SourceColumn   string                    `json:"source_column"`
	TargetColumn   string                    `json:"target_column"`
	Transformation models.TransformationType `json:"transformation"`
	Expression     string                    `json:"expression,omitempty"`
}

// BulkAcceptResponse for POST /api/wizard/mapping/suggestions/approve-high-confidence
type BulkAcceptResponse struct {
	Accepted  int `json:"accepted"`
	Threshold int `json:"threshold"`
}

// PlatformRequest for PUT /api/wizard/codegen/platform and POST /api/wizard/codegen/generate
type PlatformRequest struct {
	Platform models.Platform `json:"platform"`
}

// ValidationCheckRequest for PUT /api/wizard/validation/checks/{cid}
type ValidationCheckRequest struct {
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// WizardHandler exposes the migration progress tracker over HTTP.
type WizardHandler struct {
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewWizardHandler creates a new wizard handler.
func NewWizardHandler(t *tracker.Tracker, logger *zap.Logger) *WizardHandler {
	return &WizardHandler{
		tracker: t,
		logger:  logger.Named("wizard-handler"),
	}
}

// RegisterRoutes registers the wizard handler's routes on the given mux.
// Mutating routes require authentication when requireAuth is set.
func (h *WizardHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, requireAuth bool) {
	base := "/api/wizard"

	guard := func(next http.HandlerFunc) http.HandlerFunc {
		if requireAuth {
			return authMiddleware.RequireAuth(next)
		}
		return next
	}

	mux.HandleFunc("GET "+base, h.Snapshot)

	mux.HandleFunc("GET "+base+"/project", h.GetProject)
	mux.HandleFunc("POST "+base+"/project", guard(h.CreateProject))
	mux.HandleFunc("PUT "+base+"/project", guard(h.SetProject))
	mux.HandleFunc("POST "+base+"/project/fail", guard(h.FailProject))
	mux.HandleFunc("POST "+base+"/project/complete", guard(h.CompleteProject))

	mux.HandleFunc("GET "+base+"/phase", h.GetPhase)
	mux.HandleFunc("PUT "+base+"/phase", guard(h.SetPhase))
	mux.HandleFunc("POST "+base+"/phase/advance", guard(h.Advance))

	mux.HandleFunc("POST "+base+"/files", guard(h.AddFile))
	mux.HandleFunc("PUT "+base+"/files", guard(h.SetFiles))
	mux.HandleFunc("POST "+base+"/files/{fid}/process", guard(h.ProcessFile))
	mux.HandleFunc("DELETE "+base+"/files/{fid}", guard(h.RemoveFile))

	mux.HandleFunc("POST "+base+"/discovery/run", guard(h.RunDiscovery))
	mux.HandleFunc("POST "+base+"/discovery/complete", guard(h.CompleteDiscovery))

	mux.HandleFunc("PUT "+base+"/mapping/pair", guard(h.SelectTablePair))
	mux.HandleFunc("POST "+base+"/mapping/suggestions", guard(h.GenerateSuggestions))
	mux.HandleFunc("PATCH "+base+"/mapping/suggestions/{mid}", guard(h.UpdateFieldMapping))
	mux.HandleFunc("POST "+base+"/mapping/suggestions/approve-high-confidence", guard(h.BulkAccept))
	mux.HandleFunc("POST "+base+"/mapping/table-mappings", guard(h.SaveTableMapping))
	mux.HandleFunc("POST "+base+"/mapping/manual", guard(h.AddManualMapping))
	mux.HandleFunc("POST "+base+"/mapping/complete", guard(h.CompleteMapping))

	mux.HandleFunc("PUT "+base+"/codegen/platform", guard(h.SelectPlatform))
	mux.HandleFunc("POST "+base+"/codegen/generate", guard(h.GenerateCode))
	mux.HandleFunc("GET "+base+"/codegen/{platform}", h.GetGeneratedCode)
	mux.HandleFunc("POST "+base+"/codegen/complete", guard(h.CompleteCodeGeneration))

	mux.HandleFunc("POST "+base+"/validation/run", guard(h.RunValidation))
	mux.HandleFunc("PUT "+base+"/validation/checks/{cid}", guard(h.SetValidationCheck))
}

// Snapshot handles GET /api/wizard
func (h *WizardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.logger, http.StatusOK, h.tracker.Snapshot())
}

// GetProject handles GET /api/wizard/project
func (h *WizardHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project := h.tracker.CurrentProject()
	if project == nil {
		if err := ErrorResponse(w, http.StatusNotFound, "no_project", "No current project"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	writeData(w, h.logger, http.StatusOK, project)
}

// CreateProject handles POST /api/wizard/project
func (h *WizardHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decodeBody(w, r, h.logger, &req, false) {
		return
	}

	project, err := h.tracker.CreateProject(r.Context(), req.Name, req.SourceDialect, req.TargetDialect)
	if err != nil {
		writeError(w, h.logger, "Failed to create project", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, project)
}

// SetProject handles PUT /api/wizard/project. A null body clears the project.
func (h *WizardHandler) SetProject(w http.ResponseWriter, r *http.Request) {
	var project *models.Project
	if !decodeBody(w, r, h.logger, &project, true) {
		return
	}

	if err := h.tracker.SetCurrentProject(r.Context(), project); err != nil {
		writeError(w, h.logger, "Failed to set current project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.CurrentProject())
}

// FailProject handles POST /api/wizard/project/fail
func (h *WizardHandler) FailProject(w http.ResponseWriter, r *http.Request) {
	var req FailProjectRequest
	if !decodeBody(w, r, h.logger, &req, true) {
		return
	}

	if err := h.tracker.FailProject(r.Context(), req.Reason); err != nil {
		writeError(w, h.logger, "Failed to fail project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.CurrentProject())
}

// CompleteProject handles POST /api/wizard/project/complete
func (h *WizardHandler) CompleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.CompleteProject(r.Context()); err != nil {
		writeError(w, h.logger, "Failed to complete project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.CurrentProject())
}

// GetPhase handles GET /api/wizard/phase
func (h *WizardHandler) GetPhase(w http.ResponseWriter, r *http.Request) {
	h.writePhase(w)
}

// SetPhase handles PUT /api/wizard/phase
func (h *WizardHandler) SetPhase(w http.ResponseWriter, r *http.Request) {
	var req PhaseRequest
	if !decodeBody(w, r, h.logger, &req, false) {
		return
	}

	if err := h.tracker.SetCurrentPhase(r.Context(), req.Phase); err != nil {
		writeError(w, h.logger, "Failed to set phase", err)
		return
	}
	h.writePhase(w)
}

// Advance handles POST /api/wizard/phase/advance
func (h *WizardHandler) Advance(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tracker.Advance(r.Context()); err != nil {
		writeError(w, h.logger, "Failed to advance phase", err)
		return
	}
	h.writePhase(w)
}

func (h *WizardHandler) writePhase(w http.ResponseWriter) {
	writeData(w, h.logger, http.StatusOK, PhaseResponse{
		CurrentPhase: h.tracker.CurrentPhase(),
		CanProceed:   h.tracker.CanProceedToNextPhase(),
	})
}

// AddFile handles POST /api/wizard/files
func (h *WizardHandler) AddFile(w http.ResponseWriter, r *http.Request) {
	var file models.SchemaFile
	if !decodeBody(w, r, h.logger, &file, false) {
		return
	}

	added, err := h.tracker.AddSchemaFile(r.Context(), file)
	if err != nil {
		writeError(w, h.logger, "Failed to add schema file", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, added)
}

// SetFiles handles PUT /api/wizard/files
func (h *WizardHandler) SetFiles(w http.ResponseWriter, r *http.Request) {
	var req SetSchemaFilesRequest
	if !decodeBody(w, r, h.logger, &req, false) {
		return
	}

	if err := h.tracker.SetSchemaFiles(r.Context(), req.SourceFiles, req.TargetFiles); err != nil {
		writeError(w, h.logger, "Failed to set schema files", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.Snapshot().Upload)
}

// ProcessFile handles POST /api/wizard/files/{fid}/process. The body is the
// raw schema file content.
func (h *WizardHandler) ProcessFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := ParseFileID(w, r, h.logger)
	if !ok {
		return
	}

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxSchemaFileBytes))
	if err != nil {
		if err := ErrorResponse(w, http.StatusRequestEntityTooLarge, "file_too_large", "Schema file exceeds the upload limit"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	file, err := h.tracker.ProcessSchemaFile(r.Context(), fileID, content)
	if err != nil {
		writeError(w, h.logger, "Failed to process schema file", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, file)
}

// RemoveFile handles DELETE /api/wizard/files/{fid}
func (h *WizardHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := ParseFileID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.tracker.RemoveSchemaFile(r.Context(), fileID); err != nil {
		writeError(w, h.logger, "Failed to remove schema file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunDiscovery handles POST /api/wizard/discovery/run
func (h *WizardHandler) RunDiscovery(w http.ResponseWriter, r *http.Request) {
	graph, err := h.tracker.RunDiscovery(r.Context())
	if err != nil {
		writeError(w, h.logger, "Discovery failed", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, graph)
}

// CompleteDiscovery handles POST /api/wizard/discovery/complete
func (h *WizardHandler) CompleteDiscovery(w http.ResponseWriter, r *http.Request) {
	var req CompleteDiscoveryRequest
	if !decodeBody(w, r, h.logger, &req, false) {
		return
	}

	if err := h.tracker.CompleteDiscovery(r.Context(), req.Graph); err != nil {
		writeError(w, h.logger, "Failed to complete discovery", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.Snapshot().Discovery)
}

// SelectTablePair handles PUT /api/wizard/mapping/pair
func (h *WizardHandler) SelectTablePair(w http.ResponseWriter, r *http.Request) {
	var req SelectTablePairRequest
	if !decodeBody(w, r, h.logger, &req, false) {
		return
	}

	if err := h.tracker.SelectTablePair(req.SourceTable, req.TargetTable); err != nil {
		writeError(w, h.logger, "Failed to select table pair", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.Snapshot().Mapping)
}

// GenerateSuggestions handles POST /api/wizard/mapping/suggestions
func (h *WizardHandler) GenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.tracker.GenerateAISuggestions(r.Context())
	if err != nil {
		writeError(w, h.logger, "Failed to generate suggestions", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, suggestions)
}

// UpdateFieldMapping handles PATCH /api/wizard/mapping/suggestions/{mid}
func (h *WizardHandler) UpdateFieldMapping(w http.ResponseWriter, r *http.Request) {
	mappingID, ok := ParseMappingID(w, r, h.logger)
	if !ok {
		return
	}

	var update models.FieldMappingUpdate
	if !decodeBody(w, r, h.logger, &update, false) {
		return
	}

	fm, err := h.tracker.UpdateFieldMapping(mappingID, update)
	if err != nil {
		writeError(w, h.logger, "Failed to update field mapping", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, fm)
}

// BulkAccept handles POST /api/wizard/mapping/suggestions/approve-high-confidence
func (h *WizardHandler) BulkAccept(w http.ResponseWriter, r *http.Request) {
	accepted, err := h.tracker.BulkAcceptHighConfidence()
	if err != nil {
		writeError(w, h.logger, "Failed to accept high confidence mappings", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, BulkAcceptResponse{
		Accepted:  accepted,
		Threshold: tracker.HighConfidenceThreshold,
	})
}

// SaveTableMapping handles POST /api/wizard/mapping/table-mappings
func (h *WizardHandler) SaveTableMapping(w http.ResponseWriter, r *http.Request) {
	tm, err := h.tracker.SaveTableMapping()
	if err != nil {
		writeError(w, h.logger, "Failed to save table mapping", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, tm)
}

// AddManualMapping handles POST /api/wizard/mapping/manual
func (h *WizardHandler) AddManualMapping(w http.ResponseWriter, r *http.Request) {
	var req ManualMappingRequest
	if !decodeBody(w, r, h.logger, &req, false) {
		return
	}

	fm, err := h.tracker.AddManualMapping(req.SourceColumn, req.TargetColumn, req.Transformation, req.Expression)
	if err != nil {
		writeError(w, h.logger, "Failed to add manual mapping", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, fm)
}

// CompleteMapping handles POST /api/wizard/mapping/complete
func (h *WizardHandler) CompleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.CompleteMapping(r.Context()); err != nil {
		writeError(w, h.logger, "Failed to complete mapping", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.Snapshot().Mapping)
}

// SelectPlatform handles PUT /api/wizard/codegen/platform
func (h *WizardHandler) SelectPlatform(w http.ResponseWriter, r *http.Request) {
	var req PlatformRequest
	if !decodeBody(w, r, h.logger, &req, false) {
		return
	}

	if err := h.tracker.SelectPlatform(req.Platform); err != nil {
		writeError(w, h.logger, "Failed to select platform", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.Snapshot().CodeGeneration)
}

// GenerateCode handles POST /api/wizard/codegen/generate. An empty platform
// uses the selected one.
func (h *WizardHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	var req PlatformRequest
	if !decodeBody(w, r, h.logger, &req, true) {
		return
	}

	code, err := h.tracker.GenerateCode(r.Context(), req.Platform)
	if err != nil {
		writeError(w, h.logger, "Code generation failed", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, code)
}

// GetGeneratedCode handles GET /api/wizard/codegen/{platform}
func (h *WizardHandler) GetGeneratedCode(w http.ResponseWriter, r *http.Request) {
	platform, ok := ParsePlatform(w, r, h.logger)
	if !ok {
		return
	}

	code, err := h.tracker.GeneratedCode(platform)
	if err != nil {
		writeError(w, h.logger, "Failed to get generated code", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, code)
}

// CompleteCodeGeneration handles POST /api/wizard/codegen/complete
func (h *WizardHandler) CompleteCodeGeneration(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.CompleteCodeGeneration(r.Context()); err != nil {
		writeError(w, h.logger, "Failed to complete code generation", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.Snapshot().CodeGeneration)
}

// RunValidation handles POST /api/wizard/validation/run
func (h *WizardHandler) RunValidation(w http.ResponseWriter, r *http.Request) {
	checks, err := h.tracker.RunValidation(r.Context())
	if err != nil {
		writeError(w, h.logger, "Validation failed", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, checks)
}

// SetValidationCheck handles PUT /api/wizard/validation/checks/{cid}
func (h *WizardHandler) SetValidationCheck(w http.ResponseWriter, r *http.Request) {
	checkID, ok := ParseCheckID(w, r, h.logger)
	if !ok {
		return
	}

	var req ValidationCheckRequest
	if !decodeBody(w, r, h.logger, &req, false) {
		return
	}

	if err := h.tracker.SetValidationCheck(r.Context(), checkID, req.Passed, req.Detail); err != nil {
		writeError(w, h.logger, "Failed to set validation check", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, h.tracker.Snapshot().Validation)
}
