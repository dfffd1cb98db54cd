package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/auth"
	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/repositories"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
	"github.com/ekaya-inc/ekaya-migrate/pkg/testhelpers"
	"github.com/ekaya-inc/ekaya-migrate/pkg/tracker"
)

type wizardTestServer struct {
	mux     *http.ServeMux
	tracker *tracker.Tracker
	store   repositories.StateRepository
}

func newWizardTestServer(t *testing.T, requireAuth bool) *wizardTestServer {
	t.Helper()

	providers, err := tracker.FixtureProviders(services.InstantSimulator(), zap.NewNop())
	require.NoError(t, err)

	store := repositories.NewMemoryStateRepository()
	tr, err := tracker.New(context.Background(), store, providers, tracker.Options{
		InitialState: tracker.DefaultProjectInitialState{Name: "Sample Migration", SourceDialect: "oracle", TargetDialect: "bigquery"},
	}, zap.NewNop())
	require.NoError(t, err)

	authMiddleware := auth.NewMiddleware(config.AuthConfig{}, tr, zap.NewNop())
	mux := http.NewServeMux()
	NewWizardHandler(tr, zap.NewNop()).RegisterRoutes(mux, authMiddleware, requireAuth)
	NewExportHandler(tr, zap.NewNop()).RegisterRoutes(mux)

	wrapped := http.NewServeMux()
	wrapped.Handle("/", authMiddleware.Authenticate(mux))
	return &wizardTestServer{mux: wrapped, tracker: tr, store: store}
}

func (s *wizardTestServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the ApiResponse envelope into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.True(t, envelope.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

func TestWizardHandler_FullWorkflow(t *testing.T) {
	s := newWizardTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/wizard/phase", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var phase PhaseResponse
	decodeData(t, rec, &phase)
	assert.Equal(t, models.PhaseUpload, phase.CurrentPhase)
	assert.False(t, phase.CanProceed)

	// upload
	rec = s.do(t, http.MethodPost, "/api/wizard/files", models.SchemaFile{ID: "src-1", Name: "oracle.sql", Side: models.FileSideSource})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/wizard/files", models.SchemaFile{ID: "tgt-1", Name: "bigquery.sql", Side: models.FileSideTarget})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/wizard/files/src-1/process",
		"CREATE TABLE sales.customers (CUSTOMER_ID NUMBER(10), EMAIL VARCHAR2(255));")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var file models.SchemaFile
	decodeData(t, rec, &file)
	assert.Equal(t, models.SchemaFileStatusCompleted, file.Status)
	require.NotNil(t, file.Preview)
	assert.Equal(t, 1, file.Preview.TableCount)

	rec = s.do(t, http.MethodPost, "/api/wizard/files/tgt-1/process",
		"CREATE TABLE analytics.dim_customer (customer_id INT64, email STRING);")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/wizard/phase/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &phase)
	assert.Equal(t, models.PhaseDiscovery, phase.CurrentPhase)

	// discovery
	rec = s.do(t, http.MethodPost, "/api/wizard/phase/advance", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "phase_gated", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/api/wizard/discovery/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var graph models.LineageGraph
	decodeData(t, rec, &graph)
	assert.Equal(t, 8, graph.Summary.TableCount)

	rec = s.do(t, http.MethodPost, "/api/wizard/phase/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// mapping
	rec = s.do(t, http.MethodPost, "/api/wizard/mapping/manual", ManualMappingRequest{SourceColumn: "A", TargetColumn: "b"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no_table_pair", errorCode(t, rec))

	rec = s.do(t, http.MethodPut, "/api/wizard/mapping/pair", SelectTablePairRequest{SourceTable: "sales.customers", TargetTable: "analytics.dim_customer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/wizard/mapping/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var suggestions []models.FieldMapping
	decodeData(t, rec, &suggestions)
	assert.Len(t, suggestions, 4)

	rejected := models.MappingStatusRejected
	rec = s.do(t, http.MethodPatch, "/api/wizard/mapping/suggestions/fm-002", models.FieldMappingUpdate{Status: &rejected})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.FieldMapping
	decodeData(t, rec, &updated)
	assert.Equal(t, models.MappingStatusRejected, updated.Status)

	rec = s.do(t, http.MethodPost, "/api/wizard/mapping/suggestions/approve-high-confidence", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bulk BulkAcceptResponse
	decodeData(t, rec, &bulk)
	assert.Equal(t, 3, bulk.Accepted)
	assert.Equal(t, tracker.HighConfidenceThreshold, bulk.Threshold)

	rec = s.do(t, http.MethodPost, "/api/wizard/mapping/table-mappings", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tm models.TableMapping
	decodeData(t, rec, &tm)
	assert.Len(t, tm.FieldMappings, 3)

	rec = s.do(t, http.MethodPost, "/api/wizard/mapping/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/wizard/phase/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// codegen
	rec = s.do(t, http.MethodGet, "/api/wizard/codegen/bigquery", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/wizard/codegen/platform", PlatformRequest{Platform: models.PlatformSnowflake})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/wizard/codegen/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var code models.GeneratedCode
	decodeData(t, rec, &code)
	assert.Equal(t, models.PlatformSnowflake, code.Platform)
	assert.Equal(t, len(code.Content), code.Size)

	rec = s.do(t, http.MethodGet, "/api/wizard/codegen/snowflake", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/wizard/codegen/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/wizard/phase/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// validation
	rec = s.do(t, http.MethodPost, "/api/wizard/project/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/wizard/validation/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var checks []models.ValidationCheck
	decodeData(t, rec, &checks)
	require.Len(t, checks, 6)

	rec = s.do(t, http.MethodPut, "/api/wizard/validation/checks/"+checks[0].ID, ValidationCheckRequest{Passed: false, Detail: "row counts differ"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodGet, "/api/wizard/phase", nil)
	decodeData(t, rec, &phase)
	assert.False(t, phase.CanProceed)

	rec = s.do(t, http.MethodPut, "/api/wizard/validation/checks/"+checks[0].ID, ValidationCheckRequest{Passed: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/wizard/project/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var project models.Project
	decodeData(t, rec, &project)
	assert.Equal(t, models.ProjectStatusCompleted, project.Status)

	rec = s.do(t, http.MethodPut, "/api/wizard/phase", PhaseRequest{Phase: models.PhaseUpload})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "project_closed", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/api/wizard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.WizardSnapshot
	decodeData(t, rec, &snap)
	assert.Equal(t, models.OrderedPhases, snap.Project.Progress.CompletedPhases.List())
}

func TestWizardHandler_ErrorMapping(t *testing.T) {
	s := newWizardTestServer(t, false)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"malformed body", http.MethodPut, "/api/wizard/phase", "{not json", http.StatusBadRequest, "invalid_request"},
		{"invalid phase", http.MethodPut, "/api/wizard/phase", PhaseRequest{Phase: "deploy"}, http.StatusBadRequest, "invalid_phase"},
		{"skip ahead", http.MethodPut, "/api/wizard/phase", PhaseRequest{Phase: models.PhaseCodegen}, http.StatusConflict, "phase_skipped"},
		{"gated", http.MethodPut, "/api/wizard/phase", PhaseRequest{Phase: models.PhaseDiscovery}, http.StatusConflict, "phase_gated"},
		{"bad side", http.MethodPost, "/api/wizard/files", models.SchemaFile{Name: "x.sql", Side: "middle"}, http.StatusBadRequest, "invalid_input"},
		{"unknown file", http.MethodDelete, "/api/wizard/files/missing", nil, http.StatusNotFound, "not_found"},
		{"unknown mapping", http.MethodPatch, "/api/wizard/mapping/suggestions/fm-999", models.FieldMappingUpdate{}, http.StatusNotFound, "not_found"},
		{"unknown platform path", http.MethodGet, "/api/wizard/codegen/oracle", nil, http.StatusBadRequest, "unknown_platform"},
		{"unknown platform body", http.MethodPost, "/api/wizard/codegen/generate", PlatformRequest{Platform: "oracle"}, http.StatusBadRequest, "unknown_platform"},
		{"bad dialect", http.MethodPost, "/api/wizard/project", CreateProjectRequest{Name: "x", SourceDialect: "cobol", TargetDialect: "bigquery"}, http.StatusBadRequest, "invalid_input"},
		{"unknown check", http.MethodPut, "/api/wizard/validation/checks/nope", ValidationCheckRequest{Passed: true}, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

func TestWizardHandler_ExpressionRejected(t *testing.T) {
	s := newWizardTestServer(t, false)

	rec := s.do(t, http.MethodPut, "/api/wizard/mapping/pair", SelectTablePairRequest{SourceTable: "sales.orders", TargetTable: "analytics.fct_orders"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/wizard/mapping/manual", ManualMappingRequest{
		SourceColumn:   "STATUS",
		TargetColumn:   "order_status",
		Transformation: models.TransformationExpression,
		Expression:     "UPPER(STATUS); DROP TABLE orders",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", errorCode(t, rec))
}

func TestWizardHandler_ProjectLifecycle(t *testing.T) {
	s := newWizardTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/wizard/project", CreateProjectRequest{Name: "Teradata exit", SourceDialect: "teradata", TargetDialect: "databricks"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var project models.Project
	decodeData(t, rec, &project)
	assert.Equal(t, "Teradata exit", project.Name)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)

	rec = s.do(t, http.MethodPost, "/api/wizard/project/fail", FailProjectRequest{Reason: "source decommissioned"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &project)
	assert.Equal(t, models.ProjectStatusFailed, project.Status)
	assert.Equal(t, "source decommissioned", project.FailureReason)

	rec = s.do(t, http.MethodPut, "/api/wizard/project", "null")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/wizard/project", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_project", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/api/wizard/files", models.SchemaFile{Name: "x.sql", Side: models.FileSideSource})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no_project", errorCode(t, rec))
}

func TestWizardHandler_SetFilesAndRemove(t *testing.T) {
	s := newWizardTestServer(t, false)

	rec := s.do(t, http.MethodPut, "/api/wizard/files", SetSchemaFilesRequest{
		SourceFiles: []models.SchemaFile{{ID: "A", Name: "a.sql", Status: models.SchemaFileStatusCompleted}},
		TargetFiles: []models.SchemaFile{{ID: "B", Name: "b.sql", Status: models.SchemaFileStatusCompleted}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var upload models.UploadState
	decodeData(t, rec, &upload)
	assert.Len(t, upload.SourceFiles, 1)
	assert.Len(t, upload.TargetFiles, 1)

	rec = s.do(t, http.MethodGet, "/api/wizard/phase", nil)
	var phase PhaseResponse
	decodeData(t, rec, &phase)
	assert.True(t, phase.CanProceed)

	rec = s.do(t, http.MethodDelete, "/api/wizard/files/A", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/wizard/phase", nil)
	decodeData(t, rec, &phase)
	assert.False(t, phase.CanProceed)
}

func TestWizardHandler_ProcessFileTooLarge(t *testing.T) {
	s := newWizardTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/wizard/files", models.SchemaFile{ID: "big", Name: "big.sql", Side: models.FileSideSource})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := strings.Repeat("x", MaxSchemaFileBytes+1)
	rec = s.do(t, http.MethodPost, "/api/wizard/files/big/process", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestWizardHandler_RequireAuth(t *testing.T) {
	s := newWizardTestServer(t, true)

	rec := s.do(t, http.MethodPost, "/api/wizard/project/fail", FailProjectRequest{Reason: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Reads stay public.
	rec = s.do(t, http.MethodGet, "/api/wizard", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/wizard/files", SetSchemaFilesRequest{
		SourceFiles: []models.SchemaFile{{ID: "A", Name: "a.sql"}},
	}, "Authorization", testhelpers.GenerateTestJWTWithBearer("user-5", "Rin", "rin@example.com"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := s.tracker.Snapshot()
	assert.Equal(t, "user-5", snap.UserProfile.ID)
	assert.True(t, snap.UserProfile.Authenticated)

	state, err := s.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Rin", state.UserProfile.Name)
}
