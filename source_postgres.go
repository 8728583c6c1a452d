package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresSource struct {
	pool *pgxpool.Pool
}

func openPostgresSource(ctx context.Context, dsn string) (*postgresSource, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName()
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &postgresSource{pool: pool}, nil
}

func (s *postgresSource) Name() string    { return "PostgreSQL" }
func (s *postgresSource) Dialect() string { return "postgres" }

func (s *postgresSource) Exec(ctx context.Context, sql string) error {
	_, err := s.pool.Exec(ctx, sql)
	return err
}

func (s *postgresSource) QueryRows(ctx context.Context, sql string, fn func(string) error) error {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v *string
		if err := rows.Scan(&v); err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if err := fn(*v); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *postgresSource) Close() error {
	s.pool.Close()
	return nil
}

// ReadTable reads column metadata from information_schema. Names are matched
// exactly; an empty schema means the session's current schema.
func (s *postgresSource) ReadTable(ctx context.Context, catalog, schema, name string) (*Table, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.column_name, c.data_type, c.udt_name,
		       COALESCE(c.character_maximum_length, c.numeric_precision, 0),
		       COALESCE(c.numeric_scale, 0),
		       c.is_nullable = 'NO',
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage k
		             ON k.constraint_name = tc.constraint_name
		            AND k.table_schema = tc.table_schema
		            AND k.table_name = tc.table_name
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND tc.table_schema = c.table_schema
		             AND tc.table_name = c.table_name
		             AND k.column_name = c.column_name
		       )
		FROM information_schema.columns c
		WHERE c.table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND c.table_name = $2
		ORDER BY c.ordinal_position`,
		schema, name,
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var colName, dataType, udtName string
		var size, scale int
		var required, pk bool
		if err := rows.Scan(&colName, &dataType, &udtName, &size, &scale, &required, &pk); err != nil {
			return nil, err
		}
		c := NewColumn(colName, postgresNativeType(dataType, udtName), size, scale, required, pk)
		c.TypeName = udtName
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}
	return &Table{Catalog: catalog, Schema: schema, Name: name, Columns: cols}, nil
}

// postgresNativeType maps information_schema data_type (and udt_name for
// user-defined types) to a native type.
func postgresNativeType(dataType, udtName string) NativeType {
	switch strings.ToLower(dataType) {
	case "character", "char":
		return TypeChar
	case "character varying", "varchar", "name", "citext", "inet", "cidr", "macaddr", "interval":
		return TypeVarchar
	case "text", "json", "jsonb":
		return TypeLongVarchar
	case "uuid":
		return TypeUUID
	case "smallint":
		return TypeSmallInt
	case "integer":
		return TypeInteger
	case "bigint":
		return TypeBigInt
	case "numeric":
		return TypeNumeric
	case "real":
		return TypeReal
	case "double precision", "money":
		return TypeDouble
	case "boolean":
		return TypeBoolean
	case "date":
		return TypeDate
	case "time without time zone", "time with time zone":
		return TypeTime
	case "timestamp without time zone":
		return TypeTimestamp
	case "timestamp with time zone":
		return TypeTimestampTZ
	case "bytea":
		return TypeBlob
	case "bit", "bit varying":
		// Bit strings have no cast to numeric and must keep leading zeros.
		return TypeVarchar
	case "array":
		return TypeArray
	case "xml":
		return TypeXML
	case "user-defined":
		switch udtName {
		case "geometry", "geography":
			return TypeGeometry
		case "citext":
			return TypeLongVarchar
		}
	}
	return TypeOther
}

var _ Source = (*postgresSource)(nil)
