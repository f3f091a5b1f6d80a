package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listSettingsSQL = `SELECT key, value FROM app_settings;`

	upsertSettingSQL = `INSERT INTO app_settings (key, value, updated_at)
    VALUES ($1, $2, now())
    ON CONFLICT (key) DO UPDATE
    SET value = EXCLUDED.value,
        updated_at = EXCLUDED.updated_at;`

	insertSnapshotSQL = `INSERT INTO opportunity_snapshots (
        taken_at,
        opportunity_id,
        source,
        title,
        sport,
        event_id,
        market_id,
        price,
        ev_percent,
        ev_usd_per_share,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (taken_at, opportunity_id) DO NOTHING;`

	listLatestSnapshotSQL = `SELECT
        taken_at,
        opportunity_id,
        source,
        title,
        sport,
        event_id,
        market_id,
        price,
        ev_percent,
        ev_usd_per_share,
        updated_at
    FROM opportunity_snapshots
    WHERE taken_at = (SELECT max(taken_at) FROM opportunity_snapshots)
    ORDER BY ev_percent DESC NULLS LAST, opportunity_id
    LIMIT $1;`

	deleteSnapshotsBeforeSQL = `DELETE FROM opportunity_snapshots WHERE taken_at < $1;`

	insertAlertSQL = `INSERT INTO opportunity_alerts (
        opportunity_id,
        ev_percent,
        threshold_pct,
        channels
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, opportunity_id, ev_percent, threshold_pct, channels, created_at;`

	lastAlertAtSQL = `SELECT max(created_at) FROM opportunity_alerts WHERE opportunity_id = $1;`

	listRecentAlertsSQL = `SELECT
        id,
        opportunity_id,
        ev_percent,
        threshold_pct,
        channels,
        created_at
    FROM opportunity_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM opportunity_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SettingsRepository persists the flat settings key-value table.
type SettingsRepository interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	UpsertSetting(ctx context.Context, key, value string) error
}

// SnapshotStore defines operations for opportunity snapshots.
type SnapshotStore interface {
	InsertSnapshots(ctx context.Context, snapshots []Snapshot) error
	ListLatestSnapshot(ctx context.Context, limit int) ([]Snapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) error
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	LastAlertAt(ctx context.Context, opportunityID string) (time.Time, bool, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to settings, snapshots and alerts.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ SettingsRepository = (*Store)(nil)
	_ SnapshotStore      = (*Store)(nil)
	_ AlertStore         = (*Store)(nil)
	_ AdvisoryLocker     = (*Store)(nil)
)

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// A failed unlock is released with the session anyway.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ListSettings returns every stored setting.
func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSettingsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list settings: %w", queryErr)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpsertSetting writes one setting.
func (s *Store) UpsertSetting(ctx context.Context, key, value string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertSettingSQL, key, value); execErr != nil {
		return fmt.Errorf("upsert setting %s: %w", key, execErr)
	}
	return nil
}

// InsertSnapshots writes one watch tick's rows in a single batch.
func (s *Store) InsertSnapshots(ctx context.Context, snapshots []Snapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(insertSnapshotSQL,
			snap.TakenAt,
			snap.OpportunityID,
			snap.Source,
			snap.Title,
			snap.Sport,
			snap.EventID,
			snap.MarketID,
			snap.Price,
			snap.EVPercent,
			snap.EVUSD,
			snap.UpdatedAt,
		)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert snapshots: %w", err)
	}
	return nil
}

// ListLatestSnapshot lists the rows of the most recent tick, best EV first.
func (s *Store) ListLatestSnapshot(ctx context.Context, limit int) ([]Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listLatestSnapshotSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list latest snapshot: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		snap, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snap)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// DeleteSnapshotsBefore deletes historical snapshots.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteSnapshotsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete snapshots before: %w", execErr)
	}
	return nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.OpportunityID,
		alert.EVPercent.String(),
		alert.ThresholdPct.String(),
		alert.Channels,
	)
	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// LastAlertAt returns when opportunityID last alerted. ok is false when it
// never has.
func (s *Store) LastAlertAt(ctx context.Context, opportunityID string) (time.Time, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return time.Time{}, false, err
	}
	var last *time.Time
	if scanErr := pool.QueryRow(ctx, lastAlertAtSQL, opportunityID).Scan(&last); scanErr != nil {
		return time.Time{}, false, fmt.Errorf("last alert at: %w", scanErr)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var rec AlertRecord
	var evStr, thresholdStr string
	if err := row.Scan(
		&rec.ID,
		&rec.OpportunityID,
		&evStr,
		&thresholdStr,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	rec.EVPercent, convErr = decimal.NewFromString(evStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse ev percent: %w", convErr)
	}
	rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse threshold pct: %w", convErr)
	}
	return rec, nil
}

func scanSnapshot(rows pgx.Rows) (Snapshot, error) {
	var snap Snapshot
	if err := rows.Scan(
		&snap.TakenAt,
		&snap.OpportunityID,
		&snap.Source,
		&snap.Title,
		&snap.Sport,
		&snap.EventID,
		&snap.MarketID,
		&snap.Price,
		&snap.EVPercent,
		&snap.EVUSD,
		&snap.UpdatedAt,
	); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
