package service

import (
	"fmt"
	"testing"

	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/pkg/database"
	"github.com/courseforge/backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("debug")
	m.Run()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps concurrent writes from tripping sqlite's
	// file lock
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// configWithoutKey selects the deterministic local builder.
func configWithoutKey() config.AIConfig {
	return config.AIConfig{}
}
