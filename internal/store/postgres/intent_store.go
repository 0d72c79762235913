package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// IntentStore implements domain.IntentStore using PostgreSQL. Status
// transitions are conditional updates filtered by the expected current
// status; the database is the single arbiter of an intent's status, so no
// in-process mutex is needed and multiple bot instances can share one
// database.
type IntentStore struct {
	pool *pgxpool.Pool
}

// NewIntentStore creates an IntentStore backed by the given connection pool.
func NewIntentStore(pool *pgxpool.Pool) *IntentStore {
	return &IntentStore{pool: pool}
}

const intentSelectCols = `id, pair_id, status, entry, tp, sl, vol,
	profit_percent, created_at, updated_at`

func scanIntentRow(row pgx.Row) (domain.TradingIntent, error) {
	var in domain.TradingIntent
	var status string
	err := row.Scan(
		&in.ID, &in.PairID, &status,
		&in.Entry, &in.TP, &in.SL, &in.Vol, &in.ProfitPercent,
		&in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return domain.TradingIntent{}, err
	}
	in.Status = domain.IntentStatus(status)
	return in, nil
}

// Create inserts a new intent. The partial unique index on
// (pair_id) WHERE status NOT IN ('TP','SL') enforces at most one active
// intent per pair; a second concurrent creation surfaces as
// domain.ErrAlreadyExists.
func (s *IntentStore) Create(ctx context.Context, in domain.TradingIntent) error {
	const query = `
		INSERT INTO trading_intents (
			id, pair_id, status, entry, tp, sl, vol, profit_percent,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := s.pool.Exec(ctx, query,
		in.ID, in.PairID, string(in.Status),
		in.Entry, in.TP, in.SL, in.Vol, in.ProfitPercent,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create intent for %s: %w", in.PairID, err)
	}
	return nil
}

// FindByPairAndStatus returns the intent for a pair in the given status, or
// domain.ErrNotFound.
func (s *IntentStore) FindByPairAndStatus(ctx context.Context, pairID string, status domain.IntentStatus) (domain.TradingIntent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+intentSelectCols+` FROM trading_intents
		 WHERE pair_id = $1 AND status = $2`, pairID, string(status))

	in, err := scanIntentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TradingIntent{}, domain.ErrNotFound
		}
		return domain.TradingIntent{}, fmt.Errorf("postgres: find intent %s/%s: %w", pairID, status, err)
	}
	return in, nil
}

// TransitionStatus performs the compare-driven status update. Zero rows
// affected means the row was not in the expected status (or does not exist);
// callers treat that as a lost race.
func (s *IntentStore) TransitionStatus(ctx context.Context, id string, from, to domain.IntentStatus) error {
	const query = `
		UPDATE trading_intents SET
			status     = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = $2`

	tag, err := s.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("postgres: transition intent %s %s->%s: %w", id, from, to, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatusConflict
	}
	return nil
}

// RecordEntry converts a TakingEntry lock into FindingExit with the realized
// entry price and acquired volume.
func (s *IntentStore) RecordEntry(ctx context.Context, id string, entry, vol float64) error {
	const query = `
		UPDATE trading_intents SET
			status     = $2,
			entry      = $3,
			vol        = $4,
			updated_at = NOW()
		WHERE id = $1 AND status = $5`

	tag, err := s.pool.Exec(ctx, query, id,
		string(domain.StatusFindingExit), entry, vol,
		string(domain.StatusTakingEntry),
	)
	if err != nil {
		return fmt.Errorf("postgres: record entry on intent %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatusConflict
	}
	return nil
}

// RecordExit converts a TakingExit lock into the given terminal status. The
// exit price lands in the tp or sl column according to the terminal status.
func (s *IntentStore) RecordExit(ctx context.Context, id string, terminal domain.IntentStatus, exitPrice, profitPercent float64) error {
	var priceCol string
	switch terminal {
	case domain.StatusTP:
		priceCol = "tp"
	case domain.StatusSL:
		priceCol = "sl"
	default:
		return fmt.Errorf("postgres: record exit on intent %s: %q is not a terminal status", id, terminal)
	}

	query := fmt.Sprintf(`
		UPDATE trading_intents SET
			status         = $2,
			%s             = $3,
			profit_percent = $4,
			updated_at     = NOW()
		WHERE id = $1 AND status = $5`, priceCol)

	tag, err := s.pool.Exec(ctx, query, id,
		string(terminal), exitPrice, profitPercent,
		string(domain.StatusTakingExit),
	)
	if err != nil {
		return fmt.Errorf("postgres: record exit on intent %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatusConflict
	}
	return nil
}

// ListByStatus returns all intents currently in the given status.
func (s *IntentStore) ListByStatus(ctx context.Context, status domain.IntentStatus) ([]domain.TradingIntent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+intentSelectCols+` FROM trading_intents
		 WHERE status = $1 ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("postgres: list intents by status %s: %w", status, err)
	}
	defer rows.Close()

	var intents []domain.TradingIntent
	for rows.Next() {
		in, err := scanIntentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan intent: %w", err)
		}
		intents = append(intents, in)
	}
	return intents, rows.Err()
}

var _ domain.IntentStore = (*IntentStore)(nil)
