package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

type mysqlSource struct {
	db     *sql.DB
	dbName string
}

func openMySQLSource(ctx context.Context, dsn string) (*mysqlSource, error) {
	readDSN, err := mysqlDSNWithReadOptions(dsn)
	if err != nil {
		return nil, err
	}
	dbName, err := extractMySQLDBName(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", readDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return &mysqlSource{db: db, dbName: dbName}, nil
}

// mysqlDSNWithReadOptions normalizes a DSN for metadata reads and trigger
// deployment: temporal columns scan as UTC time.Time and statements are sent
// one at a time.
func mysqlDSNWithReadOptions(baseDSN string) (string, error) {
	cfg, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.MultiStatements = false
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// extractMySQLDBName pulls the database name from a MySQL DSN.
func extractMySQLDBName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("cannot extract database name from DSN: no database")
	}
	return cfg.DBName, nil
}

func (m *mysqlSource) Name() string    { return "MySQL" }
func (m *mysqlSource) Dialect() string { return "mysql" }

func (m *mysqlSource) Exec(ctx context.Context, query string) error {
	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *mysqlSource) QueryRows(ctx context.Context, query string, fn func(string) error) error {
	return queryStrings(ctx, m.db, query, fn)
}

func (m *mysqlSource) Close() error { return m.db.Close() }

// ReadTable reads column metadata from INFORMATION_SCHEMA. The catalog is the
// MySQL database; empty means the database named in the DSN. Table names are
// compared in binary so lookups stay case-exact on every platform.
func (m *mysqlSource) ReadTable(ctx context.Context, catalog, _ string, name string) (*Table, error) {
	dbName := catalog
	if dbName == "" {
		dbName = m.dbName
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE,
		        COALESCE(CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, DATETIME_PRECISION, 0),
		        COALESCE(NUMERIC_SCALE, 0),
		        IS_NULLABLE, COLUMN_KEY
		 FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_SCHEMA = ? AND BINARY TABLE_NAME = ?
		 ORDER BY ORDINAL_POSITION`,
		dbName, name,
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var colName, dataType, columnType, nullable, key string
		var size, scale int64
		if err := rows.Scan(&colName, &dataType, &columnType, &size, &scale, &nullable, &key); err != nil {
			return nil, err
		}
		c := NewColumn(colName, mysqlNativeType(dataType, columnType), int(size), int(scale), nullable == "NO", key == "PRI")
		c.TypeName = strings.ToLower(columnType)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}
	return &Table{Catalog: catalog, Name: name, Columns: cols}, nil
}

func mysqlNativeType(dataType, columnType string) NativeType {
	switch strings.ToLower(dataType) {
	case "char":
		return TypeChar
	case "varchar", "enum", "set":
		return TypeVarchar
	case "tinytext", "text", "mediumtext", "longtext", "json":
		return TypeLongVarchar
	case "tinyint":
		if strings.ToLower(columnType) == "tinyint(1)" {
			return TypeBoolean
		}
		return TypeTinyInt
	case "smallint":
		return TypeSmallInt
	case "mediumint", "int", "integer", "year":
		return TypeInteger
	case "bigint":
		return TypeBigInt
	case "decimal", "numeric":
		return TypeDecimal
	case "float":
		return TypeFloat
	case "double", "real":
		return TypeDouble
	case "bit":
		return TypeBit
	case "bool", "boolean":
		return TypeBoolean
	case "date":
		return TypeDate
	case "time":
		return TypeTime
	case "datetime", "timestamp":
		return TypeTimestamp
	case "binary":
		return TypeBinary
	case "varbinary":
		return TypeVarBinary
	case "tinyblob", "blob", "mediumblob", "longblob":
		return TypeBlob
	case "geometry", "point", "linestring", "polygon", "multipoint",
		"multilinestring", "multipolygon", "geometrycollection":
		return TypeGeometry
	}
	return TypeOther
}

// queryStrings runs a single-column query over database/sql.
func queryStrings(ctx context.Context, db *sql.DB, query string, fn func(string) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return err
		}
		if !v.Valid {
			continue
		}
		if err := fn(v.String); err != nil {
			return err
		}
	}
	return rows.Err()
}

var _ Source = (*mysqlSource)(nil)
