package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateTables(t *testing.T) {
	ddl := `
CREATE TABLE sales.customers (
    customer_id NUMBER(10) NOT NULL,
    first_name  VARCHAR2(100),
    email       VARCHAR2(255),
    balance     NUMBER(12,2) DEFAULT 0,
    CONSTRAINT pk_customers PRIMARY KEY (customer_id)
);

create table if not exists "sales"."orders" (
    "order_id" BIGINT,
    customer_id BIGINT,
    PRIMARY KEY (order_id),
    FOREIGN KEY (customer_id) REFERENCES sales.customers (customer_id)
);
`
	tables, err := ParseCreateTables(ddl)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "sales.customers", tables[0].Name)
	assert.Equal(t, []string{"customer_id", "first_name", "email", "balance"}, tables[0].Columns)

	assert.Equal(t, "sales.orders", tables[1].Name)
	assert.Equal(t, []string{"order_id", "customer_id"}, tables[1].Columns)
}

func TestParseCreateTables_NoTables(t *testing.T) {
	tables, err := ParseCreateTables("SELECT 1;")
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestParseCreateTables_Unterminated(t *testing.T) {
	_, err := ParseCreateTables("CREATE TABLE broken (id INT, name VARCHAR(10)")
	assert.Error(t, err)
}
