package repository

import (
	"context"
	"os"
	"testing"
)

// Runs the repository contract against a real database when TEST_DATABASE_URL is set.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// second run must be a no-op
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate again: %v", err)
	}
	if err := repo.DeleteUserData(ctx, 42); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	exerciseRepository(t, repo)
}
