package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ExecOrdersMonitor/internal/config"
	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/ports"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	processedTable = "processed_orders"
	announcedTable = "announced_orders"
	metaTable      = "monitor_meta"

	lastCheckKey = "last_check"
)

// Store keeps the processed and announced ledgers in a SQL database.
// SQLite covers the single-process deployment; Postgres is available for
// shared state. All writes commit synchronously, so a marked item stays
// marked even if the process dies right after the call returns.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.StateStore = (*Store)(nil)

// Open connects the configured backend, applies pending schema migrations,
// and returns a ready store. Callers treat any error as fatal for the run:
// guessing an empty state would re-publish the whole backlog.
func Open(ctx context.Context, cfg config.StateConfig) (*Store, error) {
	var (
		db          *sql.DB
		placeholder sq.PlaceholderFormat
		err         error
	)

	switch cfg.Backend {
	case "sqlite":
		db, err = sql.Open("sqlite", sqliteDSN(cfg.Path))
		placeholder = sq.Question
	case "postgres":
		db, err = sql.Open("pgx", cfg.DSN)
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported state backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s state: %w", cfg.Backend, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s state: %w", cfg.Backend, err)
	}

	if err := runMigrations(db, cfg.Backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate state schema: %w", err)
	}

	return &Store{db: db, sb: sq.StatementBuilder.PlaceholderFormat(placeholder)}, nil
}

func sqliteDSN(path string) string {
	return "file:" + path +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Processed returns which of the given fingerprints are already marked done.
func (s *Store) Processed(ctx context.Context, fps []domain.Fingerprint) (map[domain.Fingerprint]bool, error) {
	result := make(map[domain.Fingerprint]bool, len(fps))
	if len(fps) == 0 {
		return result, nil
	}

	keys := make([]string, len(fps))
	for i, fp := range fps {
		keys[i] = string(fp)
	}

	rows, err := s.sb.Select("fingerprint").
		From(processedTable).
		Where(sq.Eq{"fingerprint": keys}).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		result[domain.Fingerprint(fp)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed: %w", err)
	}

	return result, nil
}

// MarkProcessed records one completed item. Membership is monotonic: the
// insert is a no-op for an already-known fingerprint.
func (s *Store) MarkProcessed(ctx context.Context, fp domain.Fingerprint) error {
	_, err := s.sb.Insert(processedTable).
		Columns("fingerprint").
		Values(string(fp)).
		Suffix("ON CONFLICT (fingerprint) DO NOTHING").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", fp, err)
	}
	return nil
}

// Announced reports whether an item was already posted and with which URI.
func (s *Store) Announced(ctx context.Context, fp domain.Fingerprint) (string, bool, error) {
	var uri string
	err := s.sb.Select("post_uri").
		From(announcedTable).
		Where(sq.Eq{"fingerprint": string(fp)}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&uri)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query announced: %w", err)
	}
	return uri, true, nil
}

// MarkAnnounced records the post URI for an item; repeats are no-ops.
func (s *Store) MarkAnnounced(ctx context.Context, fp domain.Fingerprint, ref string) error {
	_, err := s.sb.Insert(announcedTable).
		Columns("fingerprint", "post_uri").
		Values(string(fp), ref).
		Suffix("ON CONFLICT (fingerprint) DO NOTHING").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("mark announced %s: %w", fp, err)
	}
	return nil
}

// SetLastRunAt persists the wall-clock time of the current run for the
// interval gate of the next one.
func (s *Store) SetLastRunAt(ctx context.Context, at time.Time) error {
	_, err := s.sb.Insert(metaTable).
		Columns("name", "value").
		Values(lastCheckKey, at.UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = excluded.value").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("record last check: %w", err)
	}
	return nil
}

// Stats reads the ledger totals and the last check time. The controller also
// uses it as the cheap health probe before a run does any work.
func (s *Store) Stats(ctx context.Context) (domain.StateStats, error) {
	var stats domain.StateStats

	if err := s.sb.Select("COUNT(*)").From(processedTable).
		RunWith(s.db).QueryRowContext(ctx).Scan(&stats.Processed); err != nil {
		return domain.StateStats{}, fmt.Errorf("count processed: %w", err)
	}
	if err := s.sb.Select("COUNT(*)").From(announcedTable).
		RunWith(s.db).QueryRowContext(ctx).Scan(&stats.Announced); err != nil {
		return domain.StateStats{}, fmt.Errorf("count announced: %w", err)
	}

	var raw string
	err := s.sb.Select("value").
		From(metaTable).
		Where(sq.Eq{"name": lastCheckKey}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.StateStats{}, fmt.Errorf("read last check: %w", err)
	default:
		at, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			return domain.StateStats{}, fmt.Errorf("parse last check %q: %w", raw, parseErr)
		}
		stats.LastRunAt = &at
	}

	return stats, nil
}
