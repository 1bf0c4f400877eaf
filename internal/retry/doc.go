// Package retry retries operations that fail while a PostgreSQL server is
// still coming up or briefly unreachable.
//
// Container entrypoints routinely race the server they seed: the first
// connection attempt often sees "connection refused" or SQLSTATE 57P03
// (the database system is starting up). The Executor retries such errors
// with exponential backoff and gives up immediately on anything else.
//
//	exec := retry.NewExecutor(
//	    retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(5, retry.WithInitialDelay(250*time.Millisecond)),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
//
// Restore commands are never run through an Executor: a half-applied archive
// cannot be replayed safely.
package retry
