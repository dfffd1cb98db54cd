package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/tracker"
)

// WizardToolDeps contains dependencies for the migration wizard tools.
type WizardToolDeps struct {
	Tracker *tracker.Tracker
	Logger  *zap.Logger
}

// wizardToolNames lists all tools in the wizard group.
var wizardToolNames = map[string]bool{
	"get_migration_status":             true,
	"advance_phase":                    true,
	"set_phase":                        true,
	"list_field_mappings":              true,
	"select_table_pair":                true,
	"generate_mapping_suggestions":     true,
	"update_field_mapping":             true,
	"approve_high_confidence_mappings": true,
	"save_table_mapping":               true,
	"generate_code":                    true,
	"get_generated_code":               true,
	"run_validation":                   true,
}

// RegisterWizardTools registers tools that drive the migration wizard.
func RegisterWizardTools(s *server.MCPServer, deps *WizardToolDeps) {
	registerGetMigrationStatusTool(s, deps)
	registerAdvancePhaseTool(s, deps)
	registerSetPhaseTool(s, deps)
	registerListFieldMappingsTool(s, deps)
	registerSelectTablePairTool(s, deps)
	registerGenerateMappingSuggestionsTool(s, deps)
	registerUpdateFieldMappingTool(s, deps)
	registerApproveHighConfidenceTool(s, deps)
	registerSaveTableMappingTool(s, deps)
	registerGenerateCodeTool(s, deps)
	registerGetGeneratedCodeTool(s, deps)
	registerRunValidationTool(s, deps)
}

// migrationStatus is a compact view of the wizard for agents.
type migrationStatus struct {
	Project      *models.Project `json:"project"`
	CurrentPhase models.Phase    `json:"current_phase"`
	CanProceed   bool            `json:"can_proceed"`
	Upload       struct {
		SourceFiles int  `json:"source_files"`
		TargetFiles int  `json:"target_files"`
		Ready       bool `json:"ready"`
	} `json:"upload"`
	Discovery struct {
		HasGraph          bool `json:"has_graph"`
		TableCount        int  `json:"table_count"`
		RelationshipCount int  `json:"relationship_count"`
		Complete          bool `json:"complete"`
	} `json:"discovery"`
	Mapping struct {
		SourceTable   string                           `json:"source_table,omitempty"`
		TargetTable   string                           `json:"target_table,omitempty"`
		Suggestions   int                              `json:"suggestions"`
		Pending       int                              `json:"pending"`
		TableMappings int                              `json:"table_mappings"`
		Metrics       map[string]models.MappingMetrics `json:"metrics,omitempty"`
	} `json:"mapping"`
	Codegen struct {
		SelectedPlatform models.Platform   `json:"selected_platform,omitempty"`
		Generated        []models.Platform `json:"generated"`
	} `json:"codegen"`
	Validation struct {
		Total  int `json:"total"`
		Passed int `json:"passed"`
		Failed int `json:"failed"`
	} `json:"validation"`
}

func buildMigrationStatus(snap models.WizardSnapshot) migrationStatus {
	var status migrationStatus
	status.Project = snap.Project
	status.CurrentPhase = snap.CurrentPhase
	status.CanProceed = snap.CanProceed

	status.Upload.SourceFiles = len(snap.Upload.SourceFiles)
	status.Upload.TargetFiles = len(snap.Upload.TargetFiles)
	status.Upload.Ready = snap.Upload.Ready()

	if g := snap.Discovery.Graph; g != nil {
		status.Discovery.HasGraph = true
		status.Discovery.TableCount = g.Summary.TableCount
		status.Discovery.RelationshipCount = len(g.Relationships)
	}
	status.Discovery.Complete = snap.Discovery.CompletedAt != nil

	status.Mapping.SourceTable = snap.Mapping.SelectedSourceTable
	status.Mapping.TargetTable = snap.Mapping.SelectedTargetTable
	status.Mapping.Suggestions = len(snap.Mapping.Suggestions)
	for _, s := range snap.Mapping.Suggestions {
		if s.Status == models.MappingStatusSuggested {
			status.Mapping.Pending++
		}
	}
	status.Mapping.TableMappings = len(snap.Mapping.TableMappings)
	status.Mapping.Metrics = snap.Mapping.Metrics

	status.Codegen.SelectedPlatform = snap.CodeGeneration.SelectedPlatform
	status.Codegen.Generated = []models.Platform{}
	for _, p := range models.ValidPlatforms {
		if snap.CodeGeneration.GeneratedCodes[p] != nil {
			status.Codegen.Generated = append(status.Codegen.Generated, p)
		}
	}

	status.Validation.Total = len(snap.Validation.Checks)
	for _, c := range snap.Validation.Checks {
		switch c.Status {
		case models.ValidationCheckPassed:
			status.Validation.Passed++
		case models.ValidationCheckFailed:
			status.Validation.Failed++
		}
	}
	return status
}

func registerGetMigrationStatusTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"get_migration_status",
		mcp.WithDescription(
			"Get the current migration project, wizard phase and whether the phase gate allows moving on. "+
				"Includes a summary of uploaded files, the lineage graph, mapping progress, generated code and validation checks.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(buildMigrationStatus(deps.Tracker.Snapshot()))
	})
}

type phaseResult struct {
	CurrentPhase models.Phase `json:"current_phase"`
	CanProceed   bool         `json:"can_proceed"`
}

func registerAdvancePhaseTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"advance_phase",
		mcp.WithDescription(
			"Move the wizard to the next phase. Fails with phase_gated when the current phase is not complete.",
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		phase, err := deps.Tracker.Advance(ctx)
		if err != nil {
			return trackerErrorResult(err)
		}
		deps.Logger.Info("Advanced wizard phase via MCP", zap.String("phase", string(phase)))
		return jsonResult(phaseResult{CurrentPhase: phase, CanProceed: deps.Tracker.CanProceedToNextPhase()})
	})
}

func registerSetPhaseTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"set_phase",
		mcp.WithDescription(
			"Navigate the wizard to a phase. Moving backwards is always allowed. "+
				"Moving forwards is limited to the next phase and requires the current phase gate to pass.",
		),
		mcp.WithString(
			"phase",
			mcp.Required(),
			mcp.Description("Target phase"),
			mcp.Enum(stringValues(models.OrderedPhases)...),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		phaseStr, err := req.RequireString("phase")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		phase := models.Phase(phaseStr)
		if !models.IsValidPhase(phase) {
			return NewErrorResultWithDetails("invalid_phase",
				fmt.Sprintf("unknown phase %q", phaseStr),
				map[string]any{"valid_phases": models.OrderedPhases}), nil
		}

		if err := deps.Tracker.SetCurrentPhase(ctx, phase); err != nil {
			return trackerErrorResult(err)
		}
		return jsonResult(phaseResult{CurrentPhase: deps.Tracker.CurrentPhase(), CanProceed: deps.Tracker.CanProceedToNextPhase()})
	})
}

func registerListFieldMappingsTool(s *server.MCPServer, deps *WizardToolDeps) {
	statuses := []models.MappingStatus{
		models.MappingStatusSuggested,
		models.MappingStatusApproved,
		models.MappingStatusRejected,
	}
	tool := mcp.NewTool(
		"list_field_mappings",
		mcp.WithDescription(
			"List the suggested field mappings for the selected table pair, optionally filtered by status.",
		),
		mcp.WithString(
			"status",
			mcp.Description("Only return mappings with this status"),
			mcp.Enum(stringValues(statuses)...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter, hasFilter := getOptionalString(req, "status")
		if hasFilter && filter != "" {
			valid := false
			for _, st := range statuses {
				if string(st) == filter {
					valid = true
				}
			}
			if !valid {
				return NewErrorResult("invalid_parameters", fmt.Sprintf("unknown status %q", filter)), nil
			}
		}

		snap := deps.Tracker.Snapshot()
		mappings := make([]models.FieldMapping, 0, len(snap.Mapping.Suggestions))
		for _, m := range snap.Mapping.Suggestions {
			if filter == "" || string(m.Status) == filter {
				mappings = append(mappings, m)
			}
		}

		response := struct {
			SourceTable string                `json:"source_table,omitempty"`
			TargetTable string                `json:"target_table,omitempty"`
			Mappings    []models.FieldMapping `json:"mappings"`
		}{
			SourceTable: snap.Mapping.SelectedSourceTable,
			TargetTable: snap.Mapping.SelectedTargetTable,
			Mappings:    mappings,
		}
		return jsonResult(response)
	})
}

func registerSelectTablePairTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"select_table_pair",
		mcp.WithDescription("Choose the source and target tables that mapping suggestions are generated for."),
		mcp.WithString(
			"source_table",
			mcp.Required(),
			mcp.Description("Qualified source table name (e.g. sales.customers)"),
		),
		mcp.WithString(
			"target_table",
			mcp.Required(),
			mcp.Description("Qualified target table name (e.g. analytics.dim_customer)"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, err := req.RequireString("source_table")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		target, err := req.RequireString("target_table")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		if err := deps.Tracker.SelectTablePair(source, target); err != nil {
			return trackerErrorResult(err)
		}
		return jsonResult(map[string]string{"source_table": trimString(source), "target_table": trimString(target)})
	})
}

func registerGenerateMappingSuggestionsTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"generate_mapping_suggestions",
		mcp.WithDescription(
			"Generate field mapping suggestions for the selected table pair. "+
				"Existing suggestions keep their approve/reject decisions.",
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		suggestions, err := deps.Tracker.GenerateAISuggestions(ctx)
		if err != nil {
			return trackerErrorResult(err)
		}
		return jsonResult(map[string]any{"count": len(suggestions), "suggestions": suggestions})
	})
}

func registerUpdateFieldMappingTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"update_field_mapping",
		mcp.WithDescription(
			"Approve, reject or edit a suggested field mapping. Rejected mappings must be moved back to suggested before approval.",
		),
		mcp.WithString(
			"mapping_id",
			mcp.Required(),
			mcp.Description("ID of the field mapping"),
		),
		mcp.WithString(
			"status",
			mcp.Description("New status"),
			mcp.Enum(stringValues([]models.MappingStatus{
				models.MappingStatusSuggested,
				models.MappingStatusApproved,
				models.MappingStatusRejected,
			})...),
		),
		mcp.WithString(
			"target_column",
			mcp.Description("Replacement target column"),
		),
		mcp.WithString(
			"transformation",
			mcp.Description("Replacement transformation"),
			mcp.Enum(stringValues(models.ValidTransformationTypes)...),
		),
		mcp.WithString(
			"expression",
			mcp.Description("Transformation expression"),
		),
		mcp.WithString(
			"notes",
			mcp.Description("Reviewer notes"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("mapping_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		var update models.FieldMappingUpdate
		if v, ok := getOptionalString(req, "status"); ok {
			st := models.MappingStatus(v)
			update.Status = &st
		}
		if v, ok := getOptionalString(req, "target_column"); ok {
			update.TargetColumn = &v
		}
		if v, ok := getOptionalString(req, "transformation"); ok {
			tr := models.TransformationType(v)
			if !models.IsValidTransformationType(tr) {
				return NewErrorResult("invalid_parameters", fmt.Sprintf("unknown transformation %q", v)), nil
			}
			update.Transformation = &tr
		}
		if v, ok := getOptionalString(req, "expression"); ok {
			update.Expression = &v
		}
		if v, ok := getOptionalString(req, "notes"); ok {
			update.Notes = &v
		}

		mapping, err := deps.Tracker.UpdateFieldMapping(trimString(id), update)
		if err != nil {
			return trackerErrorResult(err)
		}
		return jsonResult(mapping)
	})
}

func registerApproveHighConfidenceTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"approve_high_confidence_mappings",
		mcp.WithDescription(
			fmt.Sprintf("Approve every suggested mapping with confidence of at least %d. Rejected mappings are left alone.",
				tracker.HighConfidenceThreshold),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, err := deps.Tracker.BulkAcceptHighConfidence()
		if err != nil {
			return trackerErrorResult(err)
		}
		return jsonResult(map[string]int{"accepted": n, "threshold": tracker.HighConfidenceThreshold})
	})
}

func registerSaveTableMappingTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"save_table_mapping",
		mcp.WithDescription("Save the approved field mappings of the selected table pair as a table mapping."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tm, err := deps.Tracker.SaveTableMapping()
		if err != nil {
			return trackerErrorResult(err)
		}
		return jsonResult(tm)
	})
}

func registerGenerateCodeTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"generate_code",
		mcp.WithDescription(
			"Generate migration code for a platform, replacing any earlier artifact for that platform. "+
				"Defaults to the selected platform.",
		),
		mcp.WithString(
			"platform",
			mcp.Description("Target platform"),
			mcp.Enum(stringValues(models.ValidPlatforms)...),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		platform, _ := getOptionalString(req, "platform")
		code, err := deps.Tracker.GenerateCode(ctx, models.Platform(platform))
		if err != nil {
			return trackerErrorResult(err)
		}
		deps.Logger.Info("Generated code via MCP",
			zap.String("platform", string(code.Platform)),
			zap.Int("size", code.Size))
		return jsonResult(code)
	})
}

func registerGetGeneratedCodeTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"get_generated_code",
		mcp.WithDescription("Return the last generated migration code for a platform."),
		mcp.WithString(
			"platform",
			mcp.Required(),
			mcp.Description("Target platform"),
			mcp.Enum(stringValues(models.ValidPlatforms)...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		platform, err := req.RequireString("platform")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		code, err := deps.Tracker.GeneratedCode(models.Platform(trimString(platform)))
		if err != nil {
			return trackerErrorResult(err)
		}
		return jsonResult(code)
	})
}

func registerRunValidationTool(s *server.MCPServer, deps *WizardToolDeps) {
	tool := mcp.NewTool(
		"run_validation",
		mcp.WithDescription("Run the migration validation checks and return their results."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		checks, err := deps.Tracker.RunValidation(ctx)
		if err != nil {
			return trackerErrorResult(err)
		}
		return jsonResult(map[string]any{
			"checks":      checks,
			"can_proceed": deps.Tracker.CanProceedToNextPhase(),
		})
	})
}
