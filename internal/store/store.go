// Package store persists birth records and user accounts in SQLite.
// Concurrent writers are not coordinated: the last successful write wins.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no row matches the requested id or email.
var ErrNotFound = errors.New(config.ErrNotFound)

const schema = `
CREATE TABLE IF NOT EXISTS birthdays (
  id           TEXT PRIMARY KEY,
  first_name   TEXT NOT NULL,
  last_name    TEXT NOT NULL,
  birth_date   TEXT NOT NULL,
  after_sunset INTEGER NOT NULL CHECK (after_sunset IN (0,1)),
  gender       TEXT NOT NULL DEFAULT '',
  derived      TEXT NOT NULL DEFAULT '{}',
  archived     INTEGER NOT NULL DEFAULT 0 CHECK (archived IN (0,1)),
  created_by   TEXT NOT NULL DEFAULT '',
  created_at   TEXT NOT NULL,
  updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_birthdays_archived ON birthdays(archived);
CREATE TABLE IF NOT EXISTS users (
  id            TEXT PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
  name          TEXT NOT NULL DEFAULT '',
  role          TEXT NOT NULL CHECK (role IN ('admin','user')),
  password_hash TEXT NOT NULL,
  created_at    TEXT NOT NULL
);
`

// Birthday is a persisted birth record. Derived holds the last computed
// Hebrew date and projection; it is never authoritative.
type Birthday struct {
	ID          string               `json:"id"`
	FirstName   string               `json:"firstName"`
	LastName    string               `json:"lastName"`
	BirthDate   engine.GregorianDate `json:"birthDate"`
	AfterSunset bool                 `json:"afterSunset"`
	Gender      string               `json:"gender,omitempty"`
	Derived     engine.Derivation    `json:"derived"`
	Archived    bool                 `json:"archived"`
	CreatedBy   string               `json:"createdBy,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// FullName joins first and last name.
func (b Birthday) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// User is an account of the sign-in layer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DB wraps the SQLite handle.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreMigrate, err)
	}

	slog.Debug(config.MsgStoreOpened,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyFile, path,
	)
	return &DB{sql: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// -----------------------------------------------------------------------------
// Birthdays
// -----------------------------------------------------------------------------

const birthdayColumns = `id, first_name, last_name, birth_date, after_sunset, gender, derived, archived, created_by, created_at, updated_at`

// CreateBirthday inserts b. ID and timestamps must already be set.
func (d *DB) CreateBirthday(ctx context.Context, b Birthday) error {
	derived, err := json.Marshal(b.Derived)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreEncode, err)
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO birthdays(`+birthdayColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.FirstName, b.LastName, b.BirthDate.String(), boolToInt(b.AfterSunset), b.Gender,
		string(derived), boolToInt(b.Archived), b.CreatedBy, formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	return nil
}

// GetBirthday returns the record with id, archived or not.
func (d *DB) GetBirthday(ctx context.Context, id string) (Birthday, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+birthdayColumns+` FROM birthdays WHERE id = ?`, id)
	b, err := scanBirthday(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Birthday{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, err
}

// ListBirthdays returns the active or the archived records, oldest first.
func (d *DB) ListBirthdays(ctx context.Context, archived bool) ([]Birthday, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT `+birthdayColumns+` FROM birthdays WHERE archived = ? ORDER BY created_at, id`,
		boolToInt(archived))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Birthday
	for rows.Next() {
		b, err := scanBirthday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	return out, nil
}

// UpdateBirthday overwrites every mutable column of b.
func (d *DB) UpdateBirthday(ctx context.Context, b Birthday) error {
	derived, err := json.Marshal(b.Derived)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreEncode, err)
	}
	res, err := d.sql.ExecContext(ctx,
		`UPDATE birthdays SET first_name = ?, last_name = ?, birth_date = ?, after_sunset = ?, gender = ?, derived = ?, archived = ?, updated_at = ? WHERE id = ?`,
		b.FirstName, b.LastName, b.BirthDate.String(), boolToInt(b.AfterSunset), b.Gender,
		string(derived), boolToInt(b.Archived), formatTime(b.UpdatedAt), b.ID,
	)
	return expectOne(res, err, b.ID)
}

// UpdateDerived replaces only the derived fields of a record.
func (d *DB) UpdateDerived(ctx context.Context, id string, derived engine.Derivation) error {
	raw, err := json.Marshal(derived)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreEncode, err)
	}
	res, err := d.sql.ExecContext(ctx, `UPDATE birthdays SET derived = ? WHERE id = ?`, string(raw), id)
	return expectOne(res, err, id)
}

// SetArchived archives or restores a record.
func (d *DB) SetArchived(ctx context.Context, id string, archived bool, at time.Time) error {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE birthdays SET archived = ?, updated_at = ? WHERE id = ?`,
		boolToInt(archived), formatTime(at), id)
	return expectOne(res, err, id)
}

// DeleteBirthdays removes the given records in one transaction and returns
// how many existed.
func (d *DB) DeleteBirthdays(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int64
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `DELETE FROM birthdays WHERE id = ?`, id)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
		}
		deleted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	return deleted, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBirthday(s scanner) (Birthday, error) {
	var (
		b                    Birthday
		birth, derived       string
		afterSunset, archive int
		created, updated     string
	)
	err := s.Scan(&b.ID, &b.FirstName, &b.LastName, &birth, &afterSunset, &b.Gender,
		&derived, &archive, &b.CreatedBy, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Birthday{}, err
	}
	if err != nil {
		return Birthday{}, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}

	if b.BirthDate, err = engine.ParseGregorianDate(birth); err != nil {
		return Birthday{}, fmt.Errorf("%s: %w", config.ErrStoreDecode, err)
	}
	if err := json.Unmarshal([]byte(derived), &b.Derived); err != nil {
		return Birthday{}, fmt.Errorf("%s: %w", config.ErrStoreDecode, err)
	}
	b.AfterSunset = afterSunset == 1
	b.Archived = archive == 1
	b.CreatedAt = parseTime(created)
	b.UpdatedAt = parseTime(updated)
	return b, nil
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

// CreateUser inserts u. A duplicate email (case-insensitive) is reported as
// ErrEmailTaken by the caller through IsUniqueViolation.
func (d *DB) CreateUser(ctx context.Context, u User) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO users(id, email, name, role, password_hash, created_at) VALUES(?,?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.Role, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	return nil
}

// GetUser returns the user with id.
func (d *DB) GetUser(ctx context.Context, id string) (User, error) {
	return d.queryUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail looks a user up by email, ignoring case.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return d.queryUser(ctx, `WHERE email = ?`, email)
}

// CountUsers returns the number of registered accounts.
func (d *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	return n, nil
}

func (d *DB) queryUser(ctx context.Context, where string, arg any) (User, error) {
	var (
		u       User
		created string
	)
	err := d.sql.QueryRowContext(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("%w: %v", ErrNotFound, arg)
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

// IsUniqueViolation reports whether err comes from a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func expectOne(res sql.Result, err error, id string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreQuery, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
