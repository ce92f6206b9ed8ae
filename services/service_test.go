package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"contact-manager/model"
)

// newTestDB opens an isolated in-memory database migrated with the full
// schema. One connection only, so the memory database survives for the
// whole test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Contact{}, &model.SMSRequest{}, &model.PadronRow{}))
	return db
}

func newContactService(t *testing.T) *ContactService {
	t.Helper()
	return &ContactService{DB: newTestDB(t), Log: zap.NewNop()}
}

func seedUser(t *testing.T, db *gorm.DB, id, email, role string) {
	t.Helper()
	require.NoError(t, db.Create(&model.User{ID: id, Email: email, Role: role}).Error)
}
