package tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/repositories"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
	"github.com/ekaya-inc/ekaya-migrate/pkg/tracker"
)

func newWizardToolServer(t *testing.T) (*server.MCPServer, *tracker.Tracker) {
	t.Helper()

	providers, err := tracker.FixtureProviders(services.InstantSimulator(), zap.NewNop())
	require.NoError(t, err)

	tr, err := tracker.New(context.Background(), repositories.NewMemoryStateRepository(), providers, tracker.Options{
		InitialState: tracker.DefaultProjectInitialState{Name: "Sample Migration", SourceDialect: "oracle", TargetDialect: "bigquery"},
	}, zap.NewNop())
	require.NoError(t, err)

	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterWizardTools(mcpServer, &WizardToolDeps{Tracker: tr, Logger: zap.NewNop()})
	return mcpServer, tr
}

func readyUpload(t *testing.T, tr *tracker.Tracker) {
	t.Helper()
	done := func(id string) models.SchemaFile {
		return models.SchemaFile{ID: id, Name: id + ".sql", Status: models.SchemaFileStatusCompleted}
	}
	require.NoError(t, tr.SetSchemaFiles(context.Background(),
		[]models.SchemaFile{done("src")}, []models.SchemaFile{done("tgt")}))
}

// errorBody decodes a tool-level error result.
func errorBody(t *testing.T, resp toolCallResponse) ErrorResponse {
	t.Helper()
	require.True(t, resp.Result.IsError, "expected tool error result")
	var body ErrorResponse
	resp.decode(t, &body)
	return body
}

func TestRegisterWizardTools_AllToolsListed(t *testing.T) {
	mcpServer, _ := newWizardToolServer(t)

	names := toolNames(t, mcpServer)
	for name := range wizardToolNames {
		assert.Contains(t, names, name)
		assert.NotEmpty(t, names[name], "tool %s has no description", name)
	}
	assert.Len(t, names, len(wizardToolNames))
}

func TestGetMigrationStatus(t *testing.T) {
	mcpServer, tr := newWizardToolServer(t)

	var status migrationStatus
	callTool(t, mcpServer, "get_migration_status", nil).decode(t, &status)
	require.NotNil(t, status.Project)
	assert.Equal(t, "Sample Migration", status.Project.Name)
	assert.Equal(t, models.PhaseUpload, status.CurrentPhase)
	assert.False(t, status.CanProceed)
	assert.False(t, status.Upload.Ready)
	assert.Empty(t, status.Codegen.Generated)

	readyUpload(t, tr)
	callTool(t, mcpServer, "get_migration_status", nil).decode(t, &status)
	assert.True(t, status.CanProceed)
	assert.True(t, status.Upload.Ready)
	assert.Equal(t, 1, status.Upload.SourceFiles)
	assert.Equal(t, 1, status.Upload.TargetFiles)
}

func TestAdvancePhase(t *testing.T) {
	mcpServer, tr := newWizardToolServer(t)

	body := errorBody(t, callTool(t, mcpServer, "advance_phase", nil))
	assert.Equal(t, "phase_gated", body.Code)
	assert.Equal(t, models.PhaseUpload, tr.CurrentPhase())

	readyUpload(t, tr)
	var result phaseResult
	callTool(t, mcpServer, "advance_phase", nil).decode(t, &result)
	assert.Equal(t, models.PhaseDiscovery, result.CurrentPhase)
	assert.False(t, result.CanProceed)
	assert.Equal(t, models.PhaseDiscovery, tr.CurrentPhase())
}

func TestSetPhase(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		wantCode string
	}{
		{name: "missing phase", args: nil, wantCode: "invalid_parameters"},
		{name: "unknown phase", args: map[string]any{"phase": "deploy"}, wantCode: "invalid_phase"},
		{name: "skipping ahead", args: map[string]any{"phase": "codegen"}, wantCode: "phase_skipped"},
		{name: "gated", args: map[string]any{"phase": "discovery"}, wantCode: "phase_gated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mcpServer, _ := newWizardToolServer(t)
			body := errorBody(t, callTool(t, mcpServer, "set_phase", tt.args))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}

	t.Run("forward then back", func(t *testing.T) {
		mcpServer, tr := newWizardToolServer(t)
		readyUpload(t, tr)

		var result phaseResult
		callTool(t, mcpServer, "set_phase", map[string]any{"phase": "discovery"}).decode(t, &result)
		assert.Equal(t, models.PhaseDiscovery, result.CurrentPhase)

		callTool(t, mcpServer, "set_phase", map[string]any{"phase": "upload"}).decode(t, &result)
		assert.Equal(t, models.PhaseUpload, result.CurrentPhase)
		assert.True(t, result.CanProceed)
	})
}

func TestMappingTools_Workflow(t *testing.T) {
	mcpServer, tr := newWizardToolServer(t)

	callTool(t, mcpServer, "select_table_pair", map[string]any{
		"source_table": " sales.customers ",
		"target_table": "analytics.dim_customer",
	}).text(t)

	var generated struct {
		Count       int                   `json:"count"`
		Suggestions []models.FieldMapping `json:"suggestions"`
	}
	callTool(t, mcpServer, "generate_mapping_suggestions", nil).decode(t, &generated)
	require.Equal(t, 4, generated.Count)
	require.Len(t, generated.Suggestions, 4)

	var updated models.FieldMapping
	callTool(t, mcpServer, "update_field_mapping", map[string]any{
		"mapping_id": "fm-002",
		"status":     "rejected",
		"notes":      "wrong column",
	}).decode(t, &updated)
	assert.Equal(t, models.MappingStatusRejected, updated.Status)
	assert.Equal(t, "wrong column", updated.Notes)

	body := errorBody(t, callTool(t, mcpServer, "update_field_mapping", map[string]any{
		"mapping_id": "fm-002",
		"status":     "approved",
	}))
	assert.Equal(t, "invalid_status_transition", body.Code)

	var listed struct {
		SourceTable string                `json:"source_table"`
		Mappings    []models.FieldMapping `json:"mappings"`
	}
	callTool(t, mcpServer, "list_field_mappings", map[string]any{"status": "rejected"}).decode(t, &listed)
	assert.Equal(t, "sales.customers", listed.SourceTable)
	require.Len(t, listed.Mappings, 1)
	assert.Equal(t, "fm-002", listed.Mappings[0].ID)

	var bulk map[string]int
	callTool(t, mcpServer, "approve_high_confidence_mappings", nil).decode(t, &bulk)
	assert.Equal(t, 3, bulk["accepted"])
	assert.Equal(t, tracker.HighConfidenceThreshold, bulk["threshold"])

	callTool(t, mcpServer, "list_field_mappings", map[string]any{"status": "suggested"}).decode(t, &listed)
	assert.Empty(t, listed.Mappings)
	callTool(t, mcpServer, "list_field_mappings", nil).decode(t, &listed)
	assert.Len(t, listed.Mappings, 4)

	var tm models.TableMapping
	callTool(t, mcpServer, "save_table_mapping", nil).decode(t, &tm)
	assert.Equal(t, "sales.customers", tm.SourceTable)
	assert.Len(t, tm.FieldMappings, 3)
	assert.Len(t, tr.Snapshot().Mapping.TableMappings, 1)
}

func TestMappingTools_Errors(t *testing.T) {
	mcpServer, _ := newWizardToolServer(t)

	body := errorBody(t, callTool(t, mcpServer, "select_table_pair", map[string]any{"source_table": "sales.customers"}))
	assert.Equal(t, "invalid_parameters", body.Code)

	body = errorBody(t, callTool(t, mcpServer, "update_field_mapping", map[string]any{"mapping_id": "fm-404", "status": "approved"}))
	assert.Equal(t, "not_found", body.Code)

	body = errorBody(t, callTool(t, mcpServer, "update_field_mapping", map[string]any{"mapping_id": "fm-001", "transformation": "magic"}))
	assert.Equal(t, "invalid_parameters", body.Code)

	body = errorBody(t, callTool(t, mcpServer, "list_field_mappings", map[string]any{"status": "manual"}))
	assert.Equal(t, "invalid_parameters", body.Code)
}

func TestCodegenTools(t *testing.T) {
	mcpServer, _ := newWizardToolServer(t)

	body := errorBody(t, callTool(t, mcpServer, "get_generated_code", map[string]any{"platform": "snowflake"}))
	assert.Equal(t, "not_found", body.Code)

	body = errorBody(t, callTool(t, mcpServer, "generate_code", map[string]any{"platform": "oracle"}))
	assert.Equal(t, "unknown_platform", body.Code)

	var code models.GeneratedCode
	callTool(t, mcpServer, "generate_code", map[string]any{"platform": "snowflake"}).decode(t, &code)
	assert.Equal(t, models.PlatformSnowflake, code.Platform)
	assert.NotEmpty(t, code.Content)
	assert.Equal(t, len(code.Content), code.Size)

	var fetched models.GeneratedCode
	callTool(t, mcpServer, "get_generated_code", map[string]any{"platform": "snowflake"}).decode(t, &fetched)
	assert.Equal(t, code.Content, fetched.Content)
	assert.True(t, code.LastGenerated.Equal(fetched.LastGenerated))

	var again models.GeneratedCode
	callTool(t, mcpServer, "generate_code", nil).decode(t, &again)
	assert.Equal(t, models.PlatformSnowflake, again.Platform)
	assert.True(t, again.LastGenerated.After(code.LastGenerated))

	var status migrationStatus
	callTool(t, mcpServer, "get_migration_status", nil).decode(t, &status)
	assert.Equal(t, []models.Platform{models.PlatformSnowflake}, status.Codegen.Generated)
	assert.Equal(t, models.PlatformSnowflake, status.Codegen.SelectedPlatform)
}

func TestRunValidationTool(t *testing.T) {
	mcpServer, _ := newWizardToolServer(t)

	var result struct {
		Checks     []models.ValidationCheck `json:"checks"`
		CanProceed bool                     `json:"can_proceed"`
	}
	callTool(t, mcpServer, "run_validation", nil).decode(t, &result)
	require.Len(t, result.Checks, 6)
	for _, c := range result.Checks {
		assert.Equal(t, models.ValidationCheckPassed, c.Status, c.ID)
	}

	var status migrationStatus
	callTool(t, mcpServer, "get_migration_status", nil).decode(t, &status)
	assert.Equal(t, 6, status.Validation.Total)
	assert.Equal(t, 6, status.Validation.Passed)
}
