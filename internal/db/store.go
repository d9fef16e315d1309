package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/david/funding-crawler/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// too, which keeps the store testable without a live database.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store persists FundingOpportunity rows keyed by URL.
type Store struct {
	pool DBTX
}

func NewStore(pool DBTX) *Store {
	return &Store{pool: pool}
}

const selectCols = `id, title, description, source, url, deadline, amount,
	eligibility, categories, extracted_date, created_at, updated_at`

const upsertSQL = `
	INSERT INTO opportunities (
		id, title, description, source, url, deadline, amount,
		eligibility, categories, extracted_date
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (url) DO UPDATE SET
		description = EXCLUDED.description,
		deadline = EXCLUDED.deadline,
		amount = EXCLUDED.amount,
		extracted_date = EXCLUDED.extracted_date,
		updated_at = NOW()
	RETURNING (xmax = 0) AS inserted`

// Save upserts each record by URL and returns the number of rows that were
// newly inserted. A record seen before refreshes description, deadline,
// amount and extracted_date, leaving id and created_at untouched, and does
// not count toward the result. Saving the same list twice therefore returns
// zero the second time.
func (s *Store) Save(ctx context.Context, opps []models.FundingOpportunity) (int, error) {
	saved := 0
	for _, opp := range opps {
		if strings.TrimSpace(opp.Title) == "" || strings.TrimSpace(opp.URL) == "" {
			continue
		}

		id := opp.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		var inserted bool
		err := s.pool.QueryRow(ctx, upsertSQL,
			id,
			opp.Title,
			opp.Description,
			opp.Source,
			opp.URL,
			nilIfEmpty(opp.Deadline),
			nilIfEmpty(opp.Amount),
			sliceOrEmpty(opp.Eligibility),
			sliceOrEmpty(opp.Categories),
			opp.ExtractedDate,
		).Scan(&inserted)
		if err != nil {
			return saved, fmt.Errorf("saving opportunity %q: %w", opp.URL, err)
		}
		if inserted {
			saved++
		}
	}
	return saved, nil
}

// GetAll returns every stored opportunity, newest first.
func (s *Store) GetAll(ctx context.Context) ([]models.FundingOpportunity, error) {
	sql := fmt.Sprintf("SELECT %s FROM opportunities ORDER BY created_at DESC", selectCols)
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return collectOpportunities(rows)
}

// Search filters by a case-insensitive substring on title/description, an
// exact source name, and a substring within category tags. Supplied filters
// are ANDed.
func (s *Store) Search(ctx context.Context, query, source, category string) ([]models.FundingOpportunity, error) {
	where := "WHERE 1=1"
	var args []any
	argIdx := 1

	if query != "" {
		where += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", argIdx, argIdx)
		args = append(args, query)
		argIdx++
	}
	if source != "" {
		where += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, source)
		argIdx++
	}
	if category != "" {
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM unnest(categories) AS c WHERE c ILIKE '%%' || $%d || '%%')", argIdx)
		args = append(args, category)
		argIdx++
	}

	sql := fmt.Sprintf("SELECT %s FROM opportunities %s ORDER BY created_at DESC", selectCols, where)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	return collectOpportunities(rows)
}

// GetStatistics aggregates the stored set: total rows, per-source counts,
// rows created in the last 7 days, and the latest update time.
func (s *Store) GetStatistics(ctx context.Context) (*models.StoreStatistics, error) {
	stats := &models.StoreStatistics{
		CountsBySource: make(map[string]int),
	}

	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities").Scan(&stats.TotalCount); err != nil {
		return nil, fmt.Errorf("counting opportunities: %w", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT source, COUNT(*) FROM opportunities GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("counting by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scanning source count: %w", err)
		}
		stats.CountsBySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source counts: %w", err)
	}

	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM opportunities WHERE created_at >= NOW() - INTERVAL '7 days'",
	).Scan(&stats.RecentAdditions); err != nil {
		return nil, fmt.Errorf("counting recent additions: %w", err)
	}

	if err := s.pool.QueryRow(ctx,
		"SELECT MAX(updated_at) FROM opportunities",
	).Scan(&stats.LastUpdated); err != nil {
		return nil, fmt.Errorf("reading last update: %w", err)
	}

	return stats, nil
}

// Ping reports database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func collectOpportunities(rows pgx.Rows) ([]models.FundingOpportunity, error) {
	opps := []models.FundingOpportunity{}
	for rows.Next() {
		var o models.FundingOpportunity
		var deadline, amount *string

		err := rows.Scan(
			&o.ID, &o.Title, &o.Description, &o.Source, &o.URL,
			&deadline, &amount, &o.Eligibility, &o.Categories,
			&o.ExtractedDate, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		if deadline != nil {
			o.Deadline = *deadline
		}
		if amount != nil {
			o.Amount = *amount
		}
		opps = append(opps, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return opps, nil
}

func nilIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
