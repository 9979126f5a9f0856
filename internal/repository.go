package internal

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/tavsec/gin-healthcheck/checks"
)

//go:embed sql/get_setting.sql
var getSettingSQL string

//go:embed sql/upsert_setting.sql
var upsertSettingSQL string

// SettingsRepository is the durable string-keyed store that keeps the
// dashboard selection between runs.
type SettingsRepository interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Check() checks.Check
	Close() error
}

type sqliteRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &sqliteRepository{
		db: sqlx.NewDb(db, "sqlite3"),
	}
}

func (repo *sqliteRepository) Get(key string) (string, bool, error) {
	var value string
	err := repo.db.Get(&value, getSettingSQL, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (repo *sqliteRepository) Set(key, value string) error {
	if _, err := repo.db.Exec(upsertSettingSQL, key, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

func (repo *sqliteRepository) Check() checks.Check {
	return checks.SqlCheck{Sql: repo.db.DB}
}

func (repo *sqliteRepository) Close() error {
	return repo.db.Close()
}
