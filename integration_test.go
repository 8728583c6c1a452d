//go:build integration

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intSchema = "capint"

const logTableDDL = `create table {{schema}}.sym_data (
    data_id bigserial primary key,
    table_name varchar(255) not null,
    event_type char(1) not null,
    trigger_hist_id integer not null,
    pk_data text,
    row_data text,
    old_data text,
    channel_id varchar(128),
    transaction_id varchar(255),
    source_node_id varchar(50),
    external_data varchar(50),
    create_time timestamp
);`

func TestIntegration_Postgres(t *testing.T) {
	pgDSN := os.Getenv("POSTGRES_DSN")
	if pgDSN == "" {
		t.Skip("POSTGRES_DSN env var required")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, pgDSN)
	require.NoError(t, err)
	defer pool.Close()

	_, _ = pool.Exec(ctx, "drop schema if exists "+intSchema+" cascade")
	mustExec(t, pool, "create schema "+intSchema)
	t.Cleanup(func() {
		pool.Exec(context.Background(), "drop schema if exists "+intSchema+" cascade")
	})
	mustExec(t, pool, `create table `+intSchema+`.orders (
		id integer primary key,
		note varchar(100),
		amount numeric(10,2),
		created timestamp,
		payload bytea,
		active boolean
	)`)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log.sql"), []byte(logTableDDL), 0644))
	cfgText := fmt.Sprintf(`[source]
type = "postgres"
dsn = %q
default_schema = %q

[triggers]
runtime_schema = %q

[hooks]
before_deploy = ["log.sql"]

[[tables]]
name = "orders"
channel = "sales"
`, pgDSN, intSchema, intSchema)
	cfgFile := filepath.Join(dir, "capture.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfgText), 0644))

	cfg, err := loadConfig(cfgFile)
	require.NoError(t, err)
	s, err := newSession(ctx, cfg, hclog.NewNullLogger())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.deploy(ctx))

	mustExec(t, pool, `insert into capint.orders values (1, 'say "hi"\', 19.99, '2024-01-01 10:00:00.5', '\xcafe', true)`)
	mustExec(t, pool, `update capint.orders set note = 'changed' where id = 1`)
	mustExec(t, pool, `update capint.orders set note = note where id = 1`)
	mustExec(t, pool, `delete from capint.orders where id = 1`)

	rows := readCaptured(t, pool)
	require.Len(t, rows, 3, "the no-op update is not captured")
	for _, r := range rows {
		require.NoError(t, r.Validate())
		assert.Equal(t, "orders", r.TableName)
		assert.Equal(t, 1, r.TriggerHistID)
		assert.Equal(t, "sales", r.ChannelID)
	}
	assert.Equal(t, EventInsert, rows[0].EventType)
	assert.Equal(t, EventUpdate, rows[1].EventType)
	assert.Equal(t, EventDelete, rows[2].EventType)
	assert.Equal(t, `"1"`, *rows[1].PKData)
	assert.Equal(t, `"1"`, *rows[2].PKData)
	assert.Nil(t, rows[2].RowData)

	table, err := s.platform.Table(ctx, "", "", "orders", false)
	require.NoError(t, err)
	require.NotNil(t, table)

	values, err := DecodeRowData(*rows[0].RowData)
	require.NoError(t, err)
	objects, err := s.platform.ObjectValues(s.set.Encoding, values, table.Columns, false)
	require.NoError(t, err)
	require.Len(t, objects, 6)
	assert.Equal(t, int64(1), objects[0])
	assert.Equal(t, `say "hi"\`, objects[1])
	assert.True(t, decimal.RequireFromString("19.99").Equal(objects[2].(decimal.Decimal)))
	assert.True(t, time.Date(2024, 1, 1, 10, 0, 0, 500_000_000, time.UTC).Equal(objects[3].(time.Time)))
	assert.Equal(t, []byte{0xca, 0xfe}, objects[4])
	assert.Equal(t, true, objects[5])

	old, err := DecodeRowData(*rows[1].OldData)
	require.NoError(t, err)
	assert.Equal(t, `say "hi"\`, *old[1])

	t.Run("fallback path", func(t *testing.T) {
		mustExec(t, pool, "truncate capint.sym_data")

		set := s.set.Clone()
		numeric := set.Columns[CategoryNumeric]
		numeric.Primary = `case when $(tableAlias)."$(columnName)" is null then '' else '"'||cast(1/0 as text)||'"' end`
		set.Columns[CategoryNumeric] = numeric
		b, err := NewTriggerBuilder(set, cfg.triggerOptions())
		require.NoError(t, err)
		def, err := b.Build(KindInsert, table, cfg.Tables[0].history())
		require.NoError(t, err)
		for _, stmt := range def.Statements {
			mustExec(t, pool, stmt)
		}

		mustExec(t, pool, `insert into capint.orders (id, amount) values (2, 5)`)
		rows := readCaptured(t, pool)
		require.Len(t, rows, 1, "the row is captured through the fallback insert")
		assert.Equal(t, `"2",,"5.00",,,`, *rows[0].RowData)
	})

	t.Run("initial load", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.initialLoad(ctx, &buf, "id = 2", ""))
		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "-- initial load of capint.orders\n"), out)
		assert.Contains(t, out, `insert into "capint"."orders" ("id", "note", "amount", "created", "payload", "active") values (2, null, 5`)
		assert.Equal(t, 1, strings.Count(out, "insert into"))
	})
}

func mustExec(t *testing.T, pool *pgxpool.Pool, sql string) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), sql); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func readCaptured(t *testing.T, pool *pgxpool.Pool) []CapturedRow {
	t.Helper()
	rows, err := pool.Query(context.Background(), `select table_name, event_type, trigger_hist_id, pk_data, row_data, old_data,
		channel_id, transaction_id, source_node_id, external_data, cast(create_time as text)
		from `+intSchema+`.sym_data order by data_id`)
	require.NoError(t, err)
	defer rows.Close()

	var out []CapturedRow
	for rows.Next() {
		var r CapturedRow
		var event string
		require.NoError(t, rows.Scan(&r.TableName, &event, &r.TriggerHistID, &r.PKData, &r.RowData, &r.OldData,
			&r.ChannelID, &r.TransactionID, &r.SourceNodeID, &r.ExternalData, &r.CreateTime))
		r.EventType = EventType(event)
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}
