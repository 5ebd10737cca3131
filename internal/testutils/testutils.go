package testutils

import (
	"os"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shakthivel10/FSND/internal/database"
	"github.com/shakthivel10/FSND/migrations"
	"gorm.io/gorm"
)

var (
	testDB     *sqlx.DB
	dbInitOnce sync.Once
	dbInitErr  error
)

// TestDB returns a connection to the database named by TEST_DATABASE_URL
// with all migrations applied. The test is skipped when the variable is
// unset. Every table is truncated when the test ends.
func TestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	dbInitOnce.Do(func() {
		testDB, dbInitErr = sqlx.Connect("postgres", dbURL)
		if dbInitErr != nil {
			return
		}
		dbInitErr = migrations.Up(testDB.DB)
	})
	if dbInitErr != nil {
		t.Fatalf("Failed to initialize test database: %v", dbInitErr)
	}

	truncate(t)
	t.Cleanup(func() { truncate(t) })

	return testDB
}

// TestGormDB is TestDB wrapped in a gorm session.
func TestGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := database.NewGormDB(TestDB(t))
	if err != nil {
		t.Fatalf("Failed to open gorm session: %v", err)
	}
	return gdb
}

func truncate(t *testing.T) {
	_, err := testDB.Exec("TRUNCATE TABLE shows, venues, artists, drinks RESTART IDENTITY CASCADE")
	if err != nil {
		t.Errorf("Failed to clean up test data: %v", err)
	}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
