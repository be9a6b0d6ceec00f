package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/datawise/explore-assistant/internal/thread"
)

// Connect opens the relational store. A DSN containing an @tcp host is
// treated as MySQL; anything else is a sqlite file path (or :memory:), which
// keeps local development dependency-free.
func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.Contains(dsn, "@tcp(") {
		dialector = mysql.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&thread.User{},
		&thread.Thread{},
		&thread.Message{},
		&thread.Feedback{},
	)
}
