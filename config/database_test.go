package config

import (
	"path/filepath"
	"testing"

	"github.com/neraa-rental/orders-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetDB(t *testing.T) {
	original := DB
	defer func() { DB = original }()

	DB = nil
	assert.Nil(t, GetDB(), "GetDB should return nil when DB is not initialized")
}

func TestDialector(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantName   string
		shouldFail bool
	}{
		{"postgres scheme", "postgres://u:p@localhost:5432/orders?sslmode=disable", "postgres", false},
		{"postgresql scheme", "postgresql://u:p@localhost:5432/orders", "postgres", false},
		{"sqlite scheme", "sqlite://data.sqlite", "sqlite", false},
		{"bare path", "data.sqlite", "sqlite", false},
		{"empty", "", "", true},
		{"unknown scheme", "mysql://u:p@localhost/orders", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialector, err := Dialector(tt.url)
			if tt.shouldFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, dialector.Name())
		})
	}
}

func TestConnectDatabaseSQLiteAndMigrate(t *testing.T) {
	original := DB
	defer func() { DB = original }()

	cfg := &Config{DatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "orders.db"), LogLevel: "error"}
	db, err := ConnectDatabase(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, db, GetDB())

	require.NoError(t, AutoMigrate(db))
	for _, table := range []interface{}{&models.User{}, &models.Customer{}, &models.Order{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestConnectDatabaseRejectsUnknownScheme(t *testing.T) {
	_, err := ConnectDatabase(&Config{DatabaseURL: "mongodb://localhost"}, nil)
	assert.Error(t, err)
}
