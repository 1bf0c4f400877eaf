package pgseed

import "context"

// Seeder creates databases and restores archives into them.
type Seeder interface {
	// Seed builds the plan from config and executes it sequentially,
	// stopping at the first failure.
	Seed(ctx context.Context, config SeedConfig) (Summary, error)

	// Plan resolves the archives and target databases without touching the server.
	Plan(config SeedConfig) ([]PlanEntry, error)
}
