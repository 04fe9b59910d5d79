package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/demomap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS postal_codes (
	zip         TEXT PRIMARY KEY,
	city        TEXT NOT NULL,
	state       TEXT NOT NULL,
	county      TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	accuracy    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sources (
	name      TEXT PRIMARY KEY,
	etag      TEXT NOT NULL,
	rows      INTEGER NOT NULL,
	loaded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS response_cache (
	key        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	args       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	rows       INTEGER NOT NULL DEFAULT 0,
	output     TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_postal_codes_county ON postal_codes(state, county);
CREATE INDEX IF NOT EXISTS idx_response_cache_expires_at ON response_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplacePostalCodes swaps the whole gazetteer in one transaction and records
// the source ETag.
func (s *SQLiteStore) ReplacePostalCodes(ctx context.Context, source, etag string, codes []model.PostalCode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM postal_codes`); err != nil {
		return eris.Wrap(err, "sqlite: clear postal codes")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO postal_codes (zip, city, state, county, county_fips, lat, lon, accuracy)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare postal code insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, c := range codes {
		if _, err := stmt.ExecContext(ctx, c.ZIP, c.City, c.State, c.County, c.CountyFIPS, c.Lat, c.Lon, c.Accuracy); err != nil {
			return eris.Wrapf(err, "sqlite: insert postal code %s", c.ZIP)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sources (name, etag, rows, loaded_at) VALUES (?, ?, ?, ?)`,
		source, etag, len(codes), time.Now().Unix(),
	); err != nil {
		return eris.Wrap(err, "sqlite: record source")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit postal codes")
}

const postalColumns = `zip, city, state, county, county_fips, lat, lon, accuracy`

// PostalCode returns one ZIP, or nil when it is unknown.
func (s *SQLiteStore) PostalCode(ctx context.Context, zip string) (*model.PostalCode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postalColumns+` FROM postal_codes WHERE zip = ?`, zip)
	p, err := scanPostal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get postal code %s", zip)
	}
	return p, nil
}

// PostalCodesByCounty lists a county's ZIPs. A trailing " County" on the
// name is ignored.
func (s *SQLiteStore) PostalCodesByCounty(ctx context.Context, state, county string) ([]model.PostalCode, error) {
	county = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(county), " County"))
	return s.queryPostal(ctx,
		`SELECT `+postalColumns+` FROM postal_codes
		 WHERE state = ? AND (county = ? COLLATE NOCASE OR county = ? COLLATE NOCASE)
		 ORDER BY zip`,
		strings.ToUpper(state), county, county+" County")
}

// PostalCodesByPrefix lists ZIPs starting with prefix.
func (s *SQLiteStore) PostalCodesByPrefix(ctx context.Context, prefix string) ([]model.PostalCode, error) {
	return s.queryPostal(ctx,
		`SELECT `+postalColumns+` FROM postal_codes WHERE substr(zip, 1, ?) = ? ORDER BY zip`,
		len(prefix), prefix)
}

// CountPostalCodes returns the number of loaded ZIPs.
func (s *SQLiteStore) CountPostalCodes(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postal_codes`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count postal codes")
}

// SourceETag returns the ETag recorded for a source, or "".
func (s *SQLiteStore) SourceETag(ctx context.Context, source string) (string, error) {
	var etag string
	err := s.db.QueryRowContext(ctx, `SELECT etag FROM sources WHERE name = ?`, source).Scan(&etag)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return etag, eris.Wrap(err, "sqlite: source etag")
}

func (s *SQLiteStore) queryPostal(ctx context.Context, query string, args ...any) ([]model.PostalCode, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query postal codes")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.PostalCode
	for rows.Next() {
		p, err := scanPostal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan postal code")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate postal codes")
}

// GetCachedResponse returns an unexpired cached body, or nil.
func (s *SQLiteStore) GetCachedResponse(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM response_cache WHERE key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached response")
	}
	return body, nil
}

// SetCachedResponse stores a body for ttl.
func (s *SQLiteStore) SetCachedResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO response_cache (key, body, fetched_at, expires_at) VALUES (?, ?, ?, ?)`,
		key, data, now.Unix(), now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: set cached response")
}

// DeleteExpiredResponses removes expired cache entries and returns how many.
func (s *SQLiteStore) DeleteExpiredResponses(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired responses")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

// CreateRun records the start of a command.
func (s *SQLiteStore) CreateRun(ctx context.Context, command, args string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, args, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, command, args, string(model.RunStatusRunning), now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Command:   command,
		Args:      args,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// FinishRun marks a run complete, or failed when runErr is non-nil.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, rows int, output string, runErr error) error {
	status, msg := model.RunStatusComplete, ""
	if runErr != nil {
		status, msg = model.RunStatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, rows = ?, output = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), rows, output, msg, time.Now().Unix(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, args, status, rows, output, error, created_at, updated_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		var created, updated int64
		if err := rows.Scan(&r.ID, &r.Command, &r.Args, &status, &r.Rows, &r.Output, &r.Error, &created, &updated); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		r.CreatedAt = time.Unix(created, 0).UTC()
		r.UpdatedAt = time.Unix(updated, 0).UTC()
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPostal(row scannable) (*model.PostalCode, error) {
	var p model.PostalCode
	if err := row.Scan(&p.ZIP, &p.City, &p.State, &p.County, &p.CountyFIPS, &p.Lat, &p.Lon, &p.Accuracy); err != nil {
		return nil, err
	}
	return &p, nil
}
