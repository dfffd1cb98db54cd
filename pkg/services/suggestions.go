package services

import (
	"context"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// SuggestionRequest describes the table pair suggestions are wanted for.
// Empty table names mean every pair the provider knows about.
type SuggestionRequest struct {
	SourceTable string
	TargetTable string
	// Source and Target carry discovered column metadata when available.
	Source *models.LineageTable
	Target *models.LineageTable
	// Decided holds mappings of this pair the user already approved or rejected.
	Decided []models.FieldMapping
}

// SuggestionProvider proposes source-to-target field mappings.
type SuggestionProvider interface {
	Suggest(ctx context.Context, req SuggestionRequest) ([]models.FieldMapping, error)
}

type fixtureSuggestionProvider struct{}

// NewFixtureSuggestionProvider returns a provider serving a fixed, deterministic
// set of suggestions. Confidence values come from the fixture, not computation.
func NewFixtureSuggestionProvider() SuggestionProvider {
	return &fixtureSuggestionProvider{}
}

var _ SuggestionProvider = (*fixtureSuggestionProvider)(nil)

func (p *fixtureSuggestionProvider) Suggest(ctx context.Context, req SuggestionRequest) ([]models.FieldMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []models.FieldMapping
	for _, fm := range fixtureSuggestions() {
		if req.SourceTable != "" && fm.SourceTable != req.SourceTable {
			continue
		}
		if req.TargetTable != "" && fm.TargetTable != req.TargetTable {
			continue
		}
		out = append(out, fm)
	}
	return out, nil
}

func suggestion(id, srcTable, srcCol, tgtTable, tgtCol string, t models.TransformationType, expr string, confidence int) models.FieldMapping {
	return models.FieldMapping{
		ID:             id,
		SourceTable:    srcTable,
		SourceColumn:   srcCol,
		TargetTable:    tgtTable,
		TargetColumn:   tgtCol,
		Transformation: t,
		Expression:     expr,
		Confidence:     confidence,
		Status:         models.MappingStatusSuggested,
	}
}

func fixtureSuggestions() []models.FieldMapping {
	const (
		customers   = "sales.customers"
		orders      = "sales.orders"
		dimCustomer = "analytics.dim_customer"
		fctOrders   = "analytics.fct_orders"
	)
	return []models.FieldMapping{
		suggestion("fm-001", customers, "CUSTOMER_ID", dimCustomer, "customer_id", models.TransformationDirect, "", 98),
		suggestion("fm-002", customers, "FIRST_NAME", dimCustomer, "full_name", models.TransformationConcat, "CONCAT(FIRST_NAME, ' ', LAST_NAME)", 85),
		suggestion("fm-003", customers, "EMAIL", dimCustomer, "email", models.TransformationDirect, "", 95),
		suggestion("fm-004", customers, "CREATED_AT", dimCustomer, "created_at", models.TransformationCast, "CAST(CREATED_AT AS TIMESTAMP)", 92),
		suggestion("fm-005", orders, "ORDER_ID", fctOrders, "order_id", models.TransformationDirect, "", 97),
		suggestion("fm-006", orders, "TOTAL_AMOUNT", fctOrders, "total_amount", models.TransformationCast, "CAST(TOTAL_AMOUNT AS NUMERIC)", 88),
		suggestion("fm-007", orders, "STATUS", fctOrders, "order_status", models.TransformationLookup, "status_codes.label", 72),
		suggestion("fm-008", orders, "ORDER_DATE", fctOrders, "order_date", models.TransformationCast, "CAST(ORDER_DATE AS DATE)", 64),
	}
}
