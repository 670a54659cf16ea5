package db

import (
	"fmt"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// OpenTestSQLite opens a fresh, uniquely named in-memory sqlite database
// and migrates models, for repository tests that want real SQL semantics
// without a live postgres instance.
func OpenTestSQLite(models ...interface{}) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:sieve_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if len(models) > 0 {
		if err := gdb.AutoMigrate(models...); err != nil {
			return nil, err
		}
	}
	return gdb, nil
}
