// Package dbtest opens migrated databases for repository tests: in-memory
// SQLite always, Postgres when FOLIO_TEST_DB_DSN points at a scratch database.
package dbtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/migrate"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// EnvPostgresDSN names the scratch database used by Postgres-only tests.
const EnvPostgresDSN = "FOLIO_TEST_DB_DSN"

func quietLogger() gormlogger.Interface {
	return gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent})
}

// Open returns a client over a private in-memory database with every
// migration applied. The database is dropped when the test ends.
func Open(t testing.TB) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 quietLogger(),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.Up(context.Background(), sqlDB, migrate.Source{Dialect: migrate.DialectSQLite}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db.NewFromGorm(conn)
}

// OpenPostgres migrates the database named by FOLIO_TEST_DB_DSN and empties
// it again when the test ends. The test is skipped when the variable is unset.
func OpenPostgres(t testing.TB) *db.Client {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(EnvPostgresDSN))
	if dsn == "" {
		t.Skipf("%s not set", EnvPostgresDSN)
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  quietLogger(),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}

	if err := migrate.Up(context.Background(), sqlDB, migrate.Source{Dialect: migrate.DialectPostgres}); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	truncate := func() {
		if err := conn.Exec("TRUNCATE TABLE media, admins CASCADE").Error; err != nil {
			t.Errorf("truncate: %v", err)
		}
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		_ = sqlDB.Close()
	})
	return db.NewFromGorm(conn)
}
