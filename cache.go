package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// MetadataReader reads the metadata of one table by exact name. A table that
// does not exist yields nil, nil.
type MetadataReader interface {
	ReadTable(ctx context.Context, catalog, schema, name string) (*Table, error)
}

// PlatformOptions configure a Platform.
type PlatformOptions struct {
	// CacheTTL bounds how long table metadata is reused before the whole
	// cache is cleared. Zero keeps entries until ResetCachedTables.
	CacheTTL       time.Duration
	DefaultCatalog string
	DefaultSchema  string
	// CaseFallback retries failed lookups with case-folded names.
	CaseFallback bool
}

type cachedTable struct {
	table  *Table // nil records a lookup that found nothing
	filled time.Time
}

// Platform binds one engine's DatabaseInfo to a metadata source and owns the
// table cache. Marshalling methods are pure and need no locking.
type Platform struct {
	info   *DatabaseInfo
	reader MetadataReader
	opts   PlatformOptions
	logger hclog.Logger
	now    func() time.Time

	mu        sync.Mutex
	tables    map[string]cachedTable
	lastReset time.Time
}

// NewPlatform returns a platform with an empty cache.
func NewPlatform(info *DatabaseInfo, reader MetadataReader, opts PlatformOptions, logger hclog.Logger) *Platform {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	p := &Platform{
		info:   info,
		reader: reader,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		tables: make(map[string]cachedTable),
	}
	p.lastReset = p.now()
	return p
}

// Info returns the engine facts the platform was built with.
func (p *Platform) Info() *DatabaseInfo { return p.info }

// Table returns the metadata of a table, reading through the cache. Empty
// catalog or schema fall back to the configured defaults. A table that cannot
// be found under any case variant yields nil without error.
func (p *Platform) Table(ctx context.Context, catalog, schema, name string, force bool) (*Table, error) {
	if catalog == "" {
		catalog = p.opts.DefaultCatalog
	}
	if schema == "" {
		schema = p.opts.DefaultSchema
	}
	key := fullyQualifiedName(catalog, schema, name)

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.opts.CacheTTL > 0 && now.Sub(p.lastReset) > p.opts.CacheTTL {
		p.logger.Debug("table cache expired", "entries", len(p.tables))
		p.tables = make(map[string]cachedTable)
		p.lastReset = now
	}

	if !force {
		if c, ok := p.tables[key]; ok && c.table != nil {
			return c.table, nil
		}
	}

	t, err := p.readTable(ctx, catalog, schema, name)
	if err != nil {
		return nil, &MetadataError{Table: key, Err: err}
	}
	p.tables[key] = cachedTable{table: t, filled: now}
	return t, nil
}

// ResetCachedTables drops every cached table.
func (p *Platform) ResetCachedTables() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables = make(map[string]cachedTable)
	p.lastReset = p.now()
}

type tableName struct {
	catalog, schema, name string
}

func (n tableName) fqn() string { return fullyQualifiedName(n.catalog, n.schema, n.name) }

// lookupSequence lists the names tried for a lookup in order: as given, then
// upper- or lower-cased for engines that fold identifiers, then the table
// name alone folded both ways for mixed-case engines. Variants that do not
// change the qualified name are skipped.
func (p *Platform) lookupSequence(catalog, schema, name string) []tableName {
	given := tableName{catalog, schema, name}
	seq := []tableName{given}
	if !p.opts.CaseFallback {
		return seq
	}
	add := func(n tableName) {
		if n.fqn() == given.fqn() {
			return
		}
		for _, s := range seq {
			if s == n {
				return
			}
		}
		seq = append(seq, n)
	}
	switch p.info.IdentifierCase {
	case CaseUpper:
		add(tableName{strings.ToUpper(catalog), strings.ToUpper(schema), strings.ToUpper(name)})
	case CaseLower:
		add(tableName{strings.ToLower(catalog), strings.ToLower(schema), strings.ToLower(name)})
	default:
		add(tableName{catalog, schema, strings.ToLower(name)})
		add(tableName{catalog, schema, strings.ToUpper(name)})
	}
	return seq
}

func (p *Platform) readTable(ctx context.Context, catalog, schema, name string) (*Table, error) {
	for _, n := range p.lookupSequence(catalog, schema, name) {
		t, err := p.reader.ReadTable(ctx, n.catalog, n.schema, n.name)
		if err != nil {
			return nil, err
		}
		if t != nil {
			if n.fqn() != fullyQualifiedName(catalog, schema, name) {
				p.logger.Debug("resolved table by case", "requested", fullyQualifiedName(catalog, schema, name), "found", n.fqn())
			}
			return t, nil
		}
	}
	return nil, nil
}
