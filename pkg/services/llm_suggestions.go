package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-migrate/pkg/llm"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/prompts"
	"github.com/ekaya-inc/ekaya-migrate/pkg/sql"
)

// suggestionNamespace derives stable IDs so regenerating the same pair
// replaces earlier LLM suggestions instead of duplicating them.
var suggestionNamespace = uuid.MustParse("6f1c2a7e-3b0d-4e55-9a51-0c8d2f1e7b42")

// llmMapping is one model answer. Confidence arrives as 95, "95", "95%" or 0.95.
type llmMapping struct {
	SourceColumn   string          `json:"source_column"`
	TargetColumn   string          `json:"target_column"`
	Transformation string          `json:"transformation"`
	Expression     string          `json:"expression"`
	Confidence     json.RawMessage `json:"confidence"`
	Notes          json.RawMessage `json:"notes"`
}

type llmMappingResponse struct {
	Mappings []llmMapping `json:"mappings"`
}

type llmSuggestionProvider struct {
	client llm.LLMClient
	logger *zap.Logger
}

// NewLLMSuggestionProvider returns a provider that asks an LLM (OpenAI-compatible or Anthropic)
// model for mappings between the columns of one table pair.
func NewLLMSuggestionProvider(client llm.LLMClient, logger *zap.Logger) SuggestionProvider {
	return &llmSuggestionProvider{
		client: client,
		logger: logger.Named("llm-suggestions"),
	}
}

var _ SuggestionProvider = (*llmSuggestionProvider)(nil)

func (p *llmSuggestionProvider) Suggest(ctx context.Context, req SuggestionRequest) ([]models.FieldMapping, error) {
	if req.Source == nil || req.Target == nil {
		return nil, fmt.Errorf("column metadata for %s and %s is required", req.SourceTable, req.TargetTable)
	}

	result, err := p.client.GenerateResponse(ctx, buildSuggestionPrompt(req), prompts.BuildMappingSuggestionSystemMessage(), 0.1)
	if err != nil {
		return nil, fmt.Errorf("failed to request mapping suggestions: %w", err)
	}

	parsed, err := llm.ParseJSONResponse[llmMappingResponse](result.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping suggestions: %w", err)
	}

	sourceCols := columnSet(req.Source)
	targetCols := columnSet(req.Target)

	out := make([]models.FieldMapping, 0, len(parsed.Mappings))
	for _, m := range parsed.Mappings {
		srcCol, okSrc := sourceCols[strings.ToLower(m.SourceColumn)]
		tgtCol, okTgt := targetCols[strings.ToLower(m.TargetColumn)]
		if !okSrc || !okTgt {
			p.logger.Warn("Dropping suggestion for unknown column",
				zap.String("source_column", m.SourceColumn),
				zap.String("target_column", m.TargetColumn))
			continue
		}

		fm := models.FieldMapping{
			ID:             suggestionID(req.SourceTable, srcCol, req.TargetTable, tgtCol),
			SourceTable:    req.SourceTable,
			SourceColumn:   srcCol,
			TargetTable:    req.TargetTable,
			TargetColumn:   tgtCol,
			Transformation: models.TransformationType(strings.ToLower(m.Transformation)),
			Expression:     strings.TrimSpace(m.Expression),
			Confidence:     parseConfidence(m.Confidence),
			Status:         models.MappingStatusSuggested,
			Notes:          jsonutil.FlexibleStringValue(m.Notes),
		}
		if !models.IsValidTransformationType(fm.Transformation) {
			fm.Transformation = models.TransformationDirect
		}
		if err := sql.CheckExpression(fm.Expression); err != nil {
			p.logger.Warn("Discarding unsafe suggested expression",
				zap.String("mapping_id", fm.ID),
				zap.Error(err))
			fm.Expression = ""
			fm.Transformation = models.TransformationDirect
			fm.Notes = "suggested expression discarded: " + err.Error()
		}
		out = append(out, fm)
	}

	p.logger.Info("Generated LLM mapping suggestions",
		zap.String("source_table", req.SourceTable),
		zap.String("target_table", req.TargetTable),
		zap.Int("count", len(out)),
		zap.Int("total_tokens", result.TotalTokens))

	return out, nil
}

func buildSuggestionPrompt(req SuggestionRequest) string {
	decided := make([]prompts.ExistingMapping, 0, len(req.Decided))
	for _, fm := range req.Decided {
		decided = append(decided, prompts.ExistingMapping{
			SourceColumn: fm.SourceColumn,
			TargetColumn: fm.TargetColumn,
			Status:       string(fm.Status),
		})
	}
	return prompts.BuildMappingSuggestionPrompt(tableContext(req.Source), tableContext(req.Target), decided)
}

func tableContext(t *models.LineageTable) prompts.TableContext {
	ctx := prompts.TableContext{Name: t.FullName(), RowCount: t.RowCount}
	for _, c := range t.Columns {
		ctx.Columns = append(ctx.Columns, prompts.ColumnContext{
			Name:         c.Name,
			DataType:     c.DataType,
			IsNullable:   c.IsNullable,
			IsPrimaryKey: c.IsPrimaryKey,
			IsForeignKey: c.IsForeignKey,
		})
	}
	return ctx
}

// columnSet maps lower-cased column names to their declared spelling.
func columnSet(t *models.LineageTable) map[string]string {
	set := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		set[strings.ToLower(c.Name)] = c.Name
	}
	return set
}

func suggestionID(srcTable, srcCol, tgtTable, tgtCol string) string {
	key := models.TablePairKey(srcTable+"."+srcCol, tgtTable+"."+tgtCol)
	return "llm-" + uuid.NewSHA1(suggestionNamespace, []byte(key)).String()
}

// parseConfidence reads a 0-100 confidence. Values strictly between 0 and 1
// are taken as ratios. Unparseable values count as 0.
func parseConfidence(raw json.RawMessage) int {
	f, ok := jsonutil.FlexibleFloatValue(raw)
	if !ok {
		return 0
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	return clampConfidence(int(math.Round(f)))
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
