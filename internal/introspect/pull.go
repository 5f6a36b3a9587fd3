package introspect

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/prismaschema/internal/schema"
)

// DefaultConcurrency bounds the number of tables extracted at once.
const DefaultConcurrency = 4

// Extractor reads table metadata from one database
type Extractor interface {
	Provider() schema.Provider
	TableNames(ctx context.Context) ([]string, error)
	ExtractTable(ctx context.Context, name string) (*Table, error)
}

// Options configures extraction.
//
// If both Tables and ExcludeTables are specified, Tables takes precedence
// (only specified tables are extracted, then exclusions are applied).
type Options struct {
	// Tables specifies which tables to include. If empty, all tables are extracted.
	Tables []string

	// ExcludeTables specifies tables to leave out, such as migration bookkeeping.
	ExcludeTables []string

	// Concurrency bounds parallel table extraction. Zero means DefaultConcurrency.
	Concurrency int
}

// ParseTableList splits a comma-separated table list, dropping blanks.
func ParseTableList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func filterExcludedTables(tables, excludeList []string) []string {
	if len(excludeList) == 0 {
		return tables
	}

	excludeSet := make(map[string]bool, len(excludeList))
	for _, name := range excludeList {
		excludeSet[name] = true
	}

	filtered := make([]string, 0, len(tables))
	for _, name := range tables {
		if !excludeSet[name] {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// Extract reads the selected tables. The result follows the order of
// opts.Tables, or the extractor's listing order when no tables are named.
func Extract(ctx context.Context, ex Extractor, opts Options) ([]Table, error) {
	names := opts.Tables
	if len(names) == 0 {
		var err error
		names, err = ex.TableNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get table names: %w", err)
		}
	}
	names = filterExcludedTables(names, opts.ExcludeTables)

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	tables := make([]Table, len(names))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			t, err := ex.ExtractTable(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to extract table %s: %w", name, err)
			}
			tables[i] = *t
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Pull extracts tables and converts them into models.
func Pull(ctx context.Context, ex Extractor, opts Options) ([]schema.Entity, error) {
	tables, err := Extract(ctx, ex, opts)
	if err != nil {
		return nil, err
	}
	return Convert(ex.Provider(), tables)
}
