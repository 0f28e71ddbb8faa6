package scanhistory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/nerrad567/tunerwatch/internal/tuner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// timeFormat is fixed width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Repository persists channel scans.
type Repository interface {
	// Save stores a completed scan and returns it with its ID.
	Save(ctx context.Context, deviceID string, tuner int, scannedAt time.Time, channels []tuner.ChannelScanResult) (Record, error)

	// Latest returns the newest scan of one tuner, or ErrNotFound.
	Latest(ctx context.Context, deviceID string, tuner int) (Record, error)

	// List returns summaries of a device's scans, newest first.
	List(ctx context.Context, deviceID string, limit int) ([]Summary, error)

	// Prune deletes scans older than cutoff and reports how many went.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository implements Repository on the scan_results table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save stores a completed scan. A nil channel list is stored as empty.
func (r *SQLiteRepository) Save(ctx context.Context, deviceID string, idx int, scannedAt time.Time, channels []tuner.ChannelScanResult) (Record, error) {
	if channels == nil {
		channels = []tuner.ChannelScanResult{}
	}
	data, err := json.Marshal(channels)
	if err != nil {
		return Record{}, fmt.Errorf("encoding scan results: %w", err)
	}

	scannedAt = scannedAt.UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_results (device_id, tuner, scanned_at, channel_count, results)
		VALUES (?, ?, ?, ?, ?)`,
		deviceID, idx, scannedAt.Format(timeFormat), len(channels), string(data),
	)
	if err != nil {
		return Record{}, fmt.Errorf("inserting scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("reading scan id: %w", err)
	}

	return Record{
		ID:        id,
		DeviceID:  deviceID,
		Tuner:     idx,
		ScannedAt: scannedAt,
		Count:     len(channels),
		Channels:  channels,
	}, nil
}

// Latest returns the newest scan of one tuner.
func (r *SQLiteRepository) Latest(ctx context.Context, deviceID string, idx int) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, device_id, tuner, scanned_at, channel_count, results
		FROM scan_results
		WHERE device_id = ? AND tuner = ?
		ORDER BY scanned_at DESC, id DESC
		LIMIT 1`,
		deviceID, idx,
	)

	var (
		rec       Record
		scannedAt string
		results   string
	)
	err := row.Scan(&rec.ID, &rec.DeviceID, &rec.Tuner, &scannedAt, &rec.Count, &results)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying latest scan: %w", err)
	}

	if rec.ScannedAt, err = parseTimestamp(scannedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(results), &rec.Channels); err != nil {
		return Record{}, fmt.Errorf("decoding scan %d: %w", rec.ID, err)
	}
	return rec, nil
}

// List returns scan summaries for every tuner of a device, newest first.
// limit <= 0 uses DefaultListLimit.
func (r *SQLiteRepository) List(ctx context.Context, deviceID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, tuner, scanned_at, channel_count
		FROM scan_results
		WHERE device_id = ?
		ORDER BY scanned_at DESC, id DESC
		LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			s         Summary
			scannedAt string
		)
		if err := rows.Scan(&s.ID, &s.DeviceID, &s.Tuner, &scannedAt, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning scan row: %w", err)
		}
		if s.ScannedAt, err = parseTimestamp(scannedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scans: %w", err)
	}
	return out, nil
}

// Prune deletes scans taken before cutoff.
func (r *SQLiteRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM scan_results WHERE scanned_at < ?",
		cutoff.UTC().Truncate(time.Millisecond).Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning scans: %w", err)
	}
	return res.RowsAffected()
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing scan timestamp %q: %w", value, err)
	}
	return ts, nil
}
