package internal

import (
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) SettingsRepository {
	tmpFile, err := os.CreateTemp("", "fuel_dashboard_test-*.db")
	require.NoError(t, err)
	dbPath := tmpFile.Name()
	_ = tmpFile.Close()

	t.Cleanup(func() {
		_ = os.Remove(dbPath)
	})

	db, err := Connect(dbPath)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	err = Migrate(dbPath)
	require.NoError(t, err)

	repo := NewSettingsRepository(db)
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestSettingsIntegration(t *testing.T) {
	repo := setupTestDB(t)

	t.Run("Missing key", func(t *testing.T) {
		value, ok, err := repo.Get("selectedStationIds")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("Round trip", func(t *testing.T) {
		require.NoError(t, repo.Set("selectedFuelTypes", `["diesel"]`))

		value, ok, err := repo.Get("selectedFuelTypes")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `["diesel"]`, value)
	})

	t.Run("Last writer wins", func(t *testing.T) {
		require.NoError(t, repo.Set("selectedTimeRange", "7d"))
		require.NoError(t, repo.Set("selectedTimeRange", "all"))

		value, ok, err := repo.Get("selectedTimeRange")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "all", value)
	})

	t.Run("Empty value is stored", func(t *testing.T) {
		require.NoError(t, repo.Set("selectedFuelTypes", "[]"))

		value, ok, err := repo.Get("selectedFuelTypes")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "[]", value)
	})

	t.Run("Health check passes", func(t *testing.T) {
		assert.True(t, repo.Check().Pass())
	})
}

func TestSettingsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewSettingsRepository(db)
	t.Cleanup(func() {
		_ = repo.Close()
	})

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs("selectedTimeRange").
		WillReturnError(errors.New("disk I/O error"))

	_, ok, err := repo.Get("selectedTimeRange")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "failed to read setting selectedTimeRange")

	mock.ExpectExec("INSERT INTO settings").
		WithArgs("selectedTimeRange", "7d").
		WillReturnError(errors.New("database is locked"))

	err = repo.Set("selectedTimeRange", "7d")
	assert.ErrorContains(t, err, "failed to write setting selectedTimeRange")

	assert.NoError(t, mock.ExpectationsWereMet())
}
