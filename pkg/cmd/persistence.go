package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fixlify/automation-engine/pkg/persistence"
	"github.com/fixlify/automation-engine/pkg/persistence/file"
	"github.com/fixlify/automation-engine/pkg/persistence/postgresql"
)

// NewPersistence picks the backend from the database URL scheme. Anything
// that is not postgres falls back to file persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
