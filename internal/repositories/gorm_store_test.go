package repositories

import (
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rohits-web03/estately/internal/models"
)

// dryRunDB builds statements without a server; sql.Open never dials.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=127.0.0.1 user=estately dbname=estately sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return db
}

func TestUpdateQueriesStampUpdatedAt(t *testing.T) {
	db := dryRunDB(t)

	u := models.User{ID: "0b7c1d2e-3f40-4a5b-8c6d-7e8f9a0b1c2d", Username: "alice", Email: "alice@example.com"}
	sql := updateUserQuery(db, &u).Statement.SQL.String()
	if !strings.Contains(sql, `"updated_at"`) {
		t.Fatalf("user update does not touch updated_at: %s", sql)
	}
	if strings.Contains(sql, `"created_at"`) {
		t.Fatalf("user update rewrites created_at: %s", sql)
	}

	l := models.Listing{ID: "0b7c1d2e-3f40-4a5b-8c6d-7e8f9a0b1c2d", Title: "t", UserRef: "owner"}
	sql = updateListingQuery(db, &l).Statement.SQL.String()
	if !strings.Contains(sql, `"updated_at"`) {
		t.Fatalf("listing update does not touch updated_at: %s", sql)
	}
	if strings.Contains(sql, `"user_ref"`) {
		t.Fatalf("listing update rewrites user_ref: %s", sql)
	}
}
