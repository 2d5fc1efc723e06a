/*
Package sqlite provides the SQLite-backed host storage for the commission engine.

PURPOSE:
  The engine itself persists nothing. This store holds the two inputs the
  host feeds it: investment records and the rate configuration table. It
  also implements rates.Provider over that table.

KEY TABLES:
  investments:   one row per investment record (factory.InvestmentJSON)
  rate_configs:  monthly rate per (role, commitment_months, liquidity)

AMOUNTS:
  Amounts and rates are stored as decimal TEXT, never REAL, so a value read
  back is exactly the value written.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./data/commissions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  resolver := rates.NewResolver(store, rates.PolicyZero, log)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - factory/investment.go: record schema
  - rates/provider.go: Provider contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/rates"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store implements investment and rate storage using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS investments (
		id TEXT PRIMARY KEY,
		investor_id TEXT NOT NULL,
		advisor_id TEXT,
		office_id TEXT,
		amount TEXT NOT NULL,
		deposit_date TEXT NOT NULL,
		commitment_months INTEGER NOT NULL,
		liquidity TEXT NOT NULL,
		payout_start_days INTEGER NOT NULL DEFAULT 0,
		advisor_rate TEXT,
		office_rate TEXT,
		investor_rate TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_investments_investor
		ON investments(investor_id);
	CREATE INDEX IF NOT EXISTS idx_investments_advisor
		ON investments(advisor_id) WHERE advisor_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_investments_deposit_date
		ON investments(deposit_date);

	CREATE TABLE IF NOT EXISTS rate_configs (
		role TEXT NOT NULL,
		commitment_months INTEGER NOT NULL,
		liquidity TEXT NOT NULL,
		rate TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (role, commitment_months, liquidity)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INVESTMENT STORE
// =============================================================================

// SaveInvestment inserts or replaces an investment record.
func (s *Store) SaveInvestment(ctx context.Context, rec factory.InvestmentJSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO investments
		(id, investor_id, advisor_id, office_id, amount, deposit_date, commitment_months,
		 liquidity, payout_start_days, advisor_rate, office_rate, investor_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			investor_id = excluded.investor_id,
			advisor_id = excluded.advisor_id,
			office_id = excluded.office_id,
			amount = excluded.amount,
			deposit_date = excluded.deposit_date,
			commitment_months = excluded.commitment_months,
			liquidity = excluded.liquidity,
			payout_start_days = excluded.payout_start_days,
			advisor_rate = excluded.advisor_rate,
			office_rate = excluded.office_rate,
			investor_rate = excluded.investor_rate,
			updated_at = excluded.updated_at
	`

	payoutStart := 0
	if rec.PayoutStartDays != nil {
		payoutStart = *rec.PayoutStartDays
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.InvestorID,
		nullString(rec.AdvisorID),
		nullString(rec.OfficeID),
		rec.Amount.String(),
		rec.DepositDate,
		rec.CommitmentMonths,
		strings.ToLower(rec.Liquidity),
		payoutStart,
		nullDecimal(rec.AdvisorRate),
		nullDecimal(rec.OfficeRate),
		nullDecimal(rec.InvestorRate),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save investment: %w", err)
	}
	return nil
}

const investmentColumns = `id, investor_id, advisor_id, office_id, amount, deposit_date,
	commitment_months, liquidity, payout_start_days, advisor_rate, office_rate, investor_rate`

// GetInvestment retrieves an investment by ID.
func (s *Store) GetInvestment(ctx context.Context, id string) (factory.InvestmentJSON, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+investmentColumns+" FROM investments WHERE id = ?", id)
	rec, err := scanInvestment(row)
	if err == sql.ErrNoRows {
		return factory.InvestmentJSON{}, ErrNotFound
	}
	return rec, err
}

// ListInvestments returns all investments ordered by deposit date.
func (s *Store) ListInvestments(ctx context.Context) ([]factory.InvestmentJSON, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+investmentColumns+" FROM investments ORDER BY deposit_date, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var out []factory.InvestmentJSON
	for rows.Next() {
		rec, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteInvestment removes an investment. Deleting a missing ID returns ErrNotFound.
func (s *Store) DeleteInvestment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM investments WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvestment(row rowScanner) (factory.InvestmentJSON, error) {
	var (
		rec                       factory.InvestmentJSON
		advisorID, officeID       sql.NullString
		amount                    string
		payoutStart               int
		advRate, offRate, invRate sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.InvestorID, &advisorID, &officeID, &amount, &rec.DepositDate,
		&rec.CommitmentMonths, &rec.Liquidity, &payoutStart, &advRate, &offRate, &invRate)
	if err != nil {
		return rec, err
	}

	rec.AdvisorID = advisorID.String
	rec.OfficeID = officeID.String
	rec.PayoutStartDays = &payoutStart
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return rec, fmt.Errorf("investment %s: bad amount %q: %w", rec.ID, amount, err)
	}
	if rec.AdvisorRate, err = parseNullDecimal(advRate); err != nil {
		return rec, err
	}
	if rec.OfficeRate, err = parseNullDecimal(offRate); err != nil {
		return rec, err
	}
	if rec.InvestorRate, err = parseNullDecimal(invRate); err != nil {
		return rec, err
	}
	return rec, nil
}

// =============================================================================
// RATE CONFIGURATION (rates.Provider)
// =============================================================================

// UpsertRate stores the rate of one configuration key.
func (s *Store) UpsertRate(ctx context.Context, e rates.Entry) error {
	k, err := e.Key()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rate_configs (role, commitment_months, liquidity, rate, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(role, commitment_months, liquidity) DO UPDATE SET
			rate = excluded.rate,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		k.RoleTypeID, k.CommitmentMonths, string(k.Liquidity), e.Rate.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save rate: %w", err)
	}
	return nil
}

// ListRates returns the whole rate table.
func (s *Store) ListRates(ctx context.Context) ([]rates.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, commitment_months, liquidity, rate FROM rate_configs ORDER BY role, commitment_months, liquidity",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rates.Entry
	for rows.Next() {
		var e rates.Entry
		var raw string
		if err := rows.Scan(&e.Role, &e.CommitmentMonths, &e.Liquidity, &raw); err != nil {
			return nil, err
		}
		if e.Rate, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("rate %s/%d/%s: %w", e.Role, e.CommitmentMonths, e.Liquidity, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetRate implements rates.Provider.
func (s *Store) GetRate(ctx context.Context, roleTypeID string, commitmentMonths int, liquidity commission.Liquidity) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT rate FROM rate_configs WHERE role = ? AND commitment_months = ? AND liquidity = ?",
		strings.ToLower(roleTypeID), commitmentMonths, string(liquidity),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, rates.ErrNoRate
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query rate: %w", err)
	}
	return decimal.NewFromString(raw)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"investments", "rate_configs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("bad stored decimal %q: %w", ns.String, err)
	}
	return &d, nil
}

var _ rates.Provider = (*Store)(nil)
