package services

import (
	"context"
	"strings"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"go.uber.org/zap"
)

// LineageProvider discovers tables and relationships from uploaded schemas.
type LineageProvider interface {
	Discover(ctx context.Context, upload models.UploadState) (*models.LineageGraph, error)
}

type fixtureLineageProvider struct {
	logger *zap.Logger
}

// NewFixtureLineageProvider returns a provider serving a canned lineage graph.
// Tables named in upload previews that the fixture lacks are added without columns.
func NewFixtureLineageProvider(logger *zap.Logger) LineageProvider {
	return &fixtureLineageProvider{logger: logger.Named("lineage")}
}

var _ LineageProvider = (*fixtureLineageProvider)(nil)

func (p *fixtureLineageProvider) Discover(ctx context.Context, upload models.UploadState) (*models.LineageGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph := fixtureLineageGraph()

	known := make(map[string]bool, len(graph.Tables))
	for _, t := range graph.Tables {
		known[strings.ToLower(t.FullName())] = true
	}
	files := append(append([]models.SchemaFile{}, upload.SourceFiles...), upload.TargetFiles...)
	for _, f := range files {
		if f.Preview == nil {
			continue
		}
		for _, name := range f.Preview.Tables {
			if known[strings.ToLower(name)] {
				continue
			}
			known[strings.ToLower(name)] = true
			graph.Tables = append(graph.Tables, splitTableName(name))
		}
	}

	graph.Summary = Summarize(graph)
	LogConnectivity(graph.Summary, p.logger)
	return graph, nil
}

func splitTableName(name string) models.LineageTable {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return models.LineageTable{Schema: name[:i], Name: name[i+1:]}
	}
	return models.LineageTable{Name: name}
}

func pk(name, dataType string) models.LineageColumn {
	return models.LineageColumn{Name: name, DataType: dataType, IsPrimaryKey: true}
}

func fk(name, dataType string) models.LineageColumn {
	return models.LineageColumn{Name: name, DataType: dataType, IsForeignKey: true}
}

func col(name, dataType string, nullable bool) models.LineageColumn {
	return models.LineageColumn{Name: name, DataType: dataType, IsNullable: nullable}
}

func fixtureLineageGraph() *models.LineageGraph {
	return &models.LineageGraph{
		Tables: []models.LineageTable{
			{Schema: "sales", Name: "customers", RowCount: 125000, Columns: []models.LineageColumn{
				pk("CUSTOMER_ID", "NUMBER(10)"),
				col("FIRST_NAME", "VARCHAR2(50)", false),
				col("LAST_NAME", "VARCHAR2(50)", false),
				col("EMAIL", "VARCHAR2(255)", true),
				col("CREATED_AT", "DATE", false),
			}},
			{Schema: "sales", Name: "orders", RowCount: 980000, Columns: []models.LineageColumn{
				pk("ORDER_ID", "NUMBER(12)"),
				fk("CUSTOMER_ID", "NUMBER(10)"),
				col("ORDER_DATE", "DATE", false),
				col("STATUS", "CHAR(1)", false),
				col("TOTAL_AMOUNT", "NUMBER(12,2)", true),
			}},
			{Schema: "sales", Name: "order_items", RowCount: 4200000, Columns: []models.LineageColumn{
				pk("ORDER_ITEM_ID", "NUMBER(14)"),
				fk("ORDER_ID", "NUMBER(12)"),
				fk("PRODUCT_ID", "NUMBER(10)"),
				col("QUANTITY", "NUMBER(6)", false),
			}},
			{Schema: "inventory", Name: "products", RowCount: 8400, Columns: []models.LineageColumn{
				pk("PRODUCT_ID", "NUMBER(10)"),
				fk("CATEGORY_ID", "NUMBER(6)"),
				col("NAME", "VARCHAR2(120)", false),
			}},
			{Schema: "inventory", Name: "categories", RowCount: 64, Columns: []models.LineageColumn{
				pk("CATEGORY_ID", "NUMBER(6)"),
				col("LABEL", "VARCHAR2(60)", false),
			}},
			{Schema: "audit", Name: "login_events", RowCount: 15000000, Columns: []models.LineageColumn{
				pk("EVENT_ID", "NUMBER(18)"),
				col("USERNAME", "VARCHAR2(64)", false),
				col("OCCURRED_AT", "TIMESTAMP", false),
			}},
			{Schema: "analytics", Name: "dim_customer", Columns: []models.LineageColumn{
				pk("customer_id", "INT64"),
				col("full_name", "STRING", false),
				col("email", "STRING", true),
				col("created_at", "TIMESTAMP", false),
			}},
			{Schema: "analytics", Name: "fct_orders", Columns: []models.LineageColumn{
				pk("order_id", "INT64"),
				fk("customer_id", "INT64"),
				col("order_date", "DATE", false),
				col("order_status", "STRING", false),
				col("total_amount", "NUMERIC", true),
			}},
		},
		Relationships: []models.LineageRelationship{
			{ID: "rel-001", SourceTable: "sales.orders", SourceColumn: "CUSTOMER_ID", TargetTable: "sales.customers", TargetColumn: "CUSTOMER_ID", Kind: models.RelationshipKindForeignKey, Confidence: 100},
			{ID: "rel-002", SourceTable: "sales.order_items", SourceColumn: "ORDER_ID", TargetTable: "sales.orders", TargetColumn: "ORDER_ID", Kind: models.RelationshipKindForeignKey, Confidence: 100},
			{ID: "rel-003", SourceTable: "sales.order_items", SourceColumn: "PRODUCT_ID", TargetTable: "inventory.products", TargetColumn: "PRODUCT_ID", Kind: models.RelationshipKindForeignKey, Confidence: 100},
			{ID: "rel-004", SourceTable: "inventory.products", SourceColumn: "CATEGORY_ID", TargetTable: "inventory.categories", TargetColumn: "CATEGORY_ID", Kind: models.RelationshipKindForeignKey, Confidence: 100},
			{ID: "rel-005", SourceTable: "sales.customers", SourceColumn: "CUSTOMER_ID", TargetTable: "analytics.dim_customer", TargetColumn: "customer_id", Kind: models.RelationshipKindLineage, Confidence: 94},
			{ID: "rel-006", SourceTable: "sales.orders", SourceColumn: "ORDER_ID", TargetTable: "analytics.fct_orders", TargetColumn: "order_id", Kind: models.RelationshipKindLineage, Confidence: 91},
			{ID: "rel-007", SourceTable: "analytics.fct_orders", SourceColumn: "customer_id", TargetTable: "analytics.dim_customer", TargetColumn: "customer_id", Kind: models.RelationshipKindInferred, Confidence: 76},
		},
	}
}

// FindTable returns the table with the given schema-qualified name.
func FindTable(graph *models.LineageGraph, fullName string) (models.LineageTable, bool) {
	if graph == nil {
		return models.LineageTable{}, false
	}
	for _, t := range graph.Tables {
		if strings.EqualFold(t.FullName(), fullName) {
			return t, true
		}
	}
	return models.LineageTable{}, false
}
