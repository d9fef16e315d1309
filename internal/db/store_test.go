package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/david/funding-crawler/internal/models"
)

// pgxmock matches arguments strictly: an expectation without WithArgs only
// matches a zero-argument query, so expectations for the 10-argument upsert
// must declare placeholders even when the test does not assert on them.
func anyUpsertArgs() []any {
	args := make([]any, 10)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func sampleOpportunity(url string) models.FundingOpportunity {
	return models.FundingOpportunity{
		Title:         "Culture Grant",
		Description:   "Support for non-profit cultural projects.",
		Source:        "European Cultural Foundation",
		URL:           url,
		Deadline:      "30 June 2027",
		Amount:        "€10,000 - €100,000",
		Eligibility:   []string{"non-profit"},
		Categories:    []string{"culture"},
		ExtractedDate: time.Unix(1700000000, 0).UTC(),
	}
}

func TestSave_CountsOnlyInsertedRows(t *testing.T) {
	store, mock := newMockStore(t)

	// First row is new (xmax = 0), second hits the URL conflict and updates.
	mock.ExpectQuery("INSERT INTO opportunities").
		WithArgs(anyUpsertArgs()...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO opportunities").
		WithArgs(anyUpsertArgs()...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(false))

	saved, err := store.Save(context.Background(), []models.FundingOpportunity{
		sampleOpportunity("https://a.test/grants/1"),
		sampleOpportunity("https://a.test/grants/2"),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved != 1 {
		t.Errorf("saved = %d, want 1 (updates must not count)", saved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSave_SkipsBlankRecords(t *testing.T) {
	store, mock := newMockStore(t)

	// Only the complete record reaches the database.
	mock.ExpectQuery("INSERT INTO opportunities").
		WithArgs(anyUpsertArgs()...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))

	noTitle := sampleOpportunity("https://a.test/grants/1")
	noTitle.Title = "   "
	noURL := sampleOpportunity("")

	saved, err := store.Save(context.Background(), []models.FundingOpportunity{
		noTitle,
		noURL,
		sampleOpportunity("https://a.test/grants/2"),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved != 1 {
		t.Errorf("saved = %d, want 1", saved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSave_GeneratesIDWhenMissing(t *testing.T) {
	store, mock := newMockStore(t)

	opp := sampleOpportunity("https://a.test/grants/1")

	mock.ExpectQuery("INSERT INTO opportunities").
		WithArgs(
			pgxmock.AnyArg(), // generated uuid
			opp.Title,
			opp.Description,
			opp.Source,
			opp.URL,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			opp.Eligibility,
			opp.Categories,
			opp.ExtractedDate,
		).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))

	if _, err := store.Save(context.Background(), []models.FundingOpportunity{opp}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSave_QueryErrorStopsBatch(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO opportunities").
		WithArgs(anyUpsertArgs()...).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO opportunities").
		WithArgs(anyUpsertArgs()...).
		WillReturnError(errors.New("deadlock detected"))

	saved, err := store.Save(context.Background(), []models.FundingOpportunity{
		sampleOpportunity("https://a.test/grants/1"),
		sampleOpportunity("https://a.test/grants/2"),
	})
	if err == nil {
		t.Fatal("expected error from failing upsert")
	}
	if saved != 1 {
		t.Errorf("saved = %d, want the 1 row persisted before the failure", saved)
	}
}

func opportunityRows(t *testing.T, opps ...models.FundingOpportunity) *pgxmock.Rows {
	t.Helper()
	rows := pgxmock.NewRows([]string{
		"id", "title", "description", "source", "url", "deadline", "amount",
		"eligibility", "categories", "extracted_date", "created_at", "updated_at",
	})
	now := time.Unix(1700000000, 0).UTC()
	for _, o := range opps {
		id := o.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		rows.AddRow(
			id, o.Title, o.Description, o.Source, o.URL,
			&o.Deadline, &o.Amount, o.Eligibility, o.Categories,
			o.ExtractedDate, now, now,
		)
	}
	return rows
}

func TestGetAll(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM opportunities ORDER BY created_at DESC").
		WillReturnRows(opportunityRows(t,
			sampleOpportunity("https://a.test/grants/1"),
			sampleOpportunity("https://a.test/grants/2"),
		))

	opps, err := store.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(opps) != 2 {
		t.Fatalf("got %d rows, want 2", len(opps))
	}
	if opps[0].Deadline != "30 June 2027" {
		t.Errorf("deadline not mapped back: %q", opps[0].Deadline)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetAll_NoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM opportunities").
		WillReturnRows(opportunityRows(t))

	opps, err := store.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if opps == nil {
		t.Error("empty result must be a non-nil slice")
	}
	if len(opps) != 0 {
		t.Errorf("got %d rows, want 0", len(opps))
	}
}

func TestSearch_FiltersAreANDed(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM opportunities WHERE 1=1 AND \(title ILIKE (.+)\) AND source = \$2 AND EXISTS`).
		WithArgs("heritage", "Fondation de France", "culture").
		WillReturnRows(opportunityRows(t, sampleOpportunity("https://a.test/grants/1")))

	opps, err := store.Search(context.Background(), "heritage", "Fondation de France", "culture")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(opps) != 1 {
		t.Errorf("got %d rows, want 1", len(opps))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSearch_NoFilters(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM opportunities WHERE 1=1 ORDER BY created_at DESC`).
		WillReturnRows(opportunityRows(t))

	if _, err := store.Search(context.Background(), "", "", ""); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetStatistics(t *testing.T) {
	store, mock := newMockStore(t)
	lastUpdated := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM opportunities`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT source, COUNT\(\*\) FROM opportunities GROUP BY source`).
		WillReturnRows(pgxmock.NewRows([]string{"source", "count"}).
			AddRow("EU Funding & Tenders", 30).
			AddRow("Fondation de France", 12))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM opportunities WHERE created_at`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT MAX\(updated_at\) FROM opportunities`).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(&lastUpdated))

	stats, err := store.GetStatistics(context.Background())
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.TotalCount != 42 {
		t.Errorf("TotalCount = %d", stats.TotalCount)
	}
	if stats.CountsBySource["Fondation de France"] != 12 {
		t.Errorf("CountsBySource = %v", stats.CountsBySource)
	}
	if stats.RecentAdditions != 7 {
		t.Errorf("RecentAdditions = %d", stats.RecentAdditions)
	}
	if stats.LastUpdated == nil || !stats.LastUpdated.Equal(lastUpdated) {
		t.Errorf("LastUpdated = %v", stats.LastUpdated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetStatistics_EmptyTable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM opportunities`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT source, COUNT\(\*\) FROM opportunities GROUP BY source`).
		WillReturnRows(pgxmock.NewRows([]string{"source", "count"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM opportunities WHERE created_at`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT MAX\(updated_at\) FROM opportunities`).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow((*time.Time)(nil)))

	stats, err := store.GetStatistics(context.Background())
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.TotalCount != 0 || stats.RecentAdditions != 0 {
		t.Errorf("counts = %d/%d, want 0/0", stats.TotalCount, stats.RecentAdditions)
	}
	if stats.LastUpdated != nil {
		t.Errorf("LastUpdated = %v, want nil", stats.LastUpdated)
	}
}
