// Package relay provides a relay delivery engine for Go: it ingests messages
// from registered clients and guarantees each is delivered to a downstream
// target at least once, even when that target is unreliable, without ever
// creating a duplicate record for the same logical submission.
//
// Works both as a library for embedding in your application AND as a
// standalone microservice with REST API (see cmd/relay-server).
//
// # Features
//
//   - At-least-once delivery with exponential backoff retry (1s → 2s → 4s)
//   - Idempotent publish: duplicate submissions collapse into one tracked
//     record via a unique idempotency key, including under concurrency
//     (unique-constraint recovery closes the check-then-create race)
//   - Closed delivery state machine: PENDING → RETRYING → SUCCESS | FAILED,
//     terminal states never regress
//   - Conditional attempt claim keeps delivery at-most-one-concurrent-per-record
//   - Batch retry sweeper re-drives due records in bounded batches
//   - API-key client authentication with ownership checks
//   - Pluggable admission control, Logger, NotificationService
//   - Repository Pattern for clean data access abstraction
//   - Options Pattern for modern Go API design
//   - Multi-Database Support: MySQL, PostgreSQL, SQLite via Relica adapters
//   - Embedded Migrations for easy database setup
//
// # Quick Start
//
// First, apply the database migrations, then wire the components:
//
//	db, _ := sql.Open("mysql", "user:pass@tcp(localhost:3306)/relay?parseTime=true")
//
//	repos := relica.NewRepositories(db, "mysql")
//
//	auth, _ := relay.NewAuthenticator(repos.Client, logger)
//
//	engine, _ := relay.NewDeliveryEngine(
//	    relay.WithEngineRepository(repos.RelayLog),
//	    relay.WithEngineGateway(gateway),
//	    relay.WithEngineLogger(logger),
//	)
//
//	publisher, _ := relay.NewPublisher(
//	    relay.WithPublisherRepository(repos.RelayLog),
//	    relay.WithPublisherAuthenticator(auth),
//	    relay.WithPublisherEngine(engine),
//	    relay.WithPublisherLogger(logger),
//	)
//
//	sweeper, _ := relay.NewSweeper(
//	    relay.WithSweeperRepository(repos.RelayLog),
//	    relay.WithSweeperEngine(engine),
//	    relay.WithSweeperLogger(logger),
//	)
//	go sweeper.Run(ctx, 5*time.Second)
//
//	result, err := publisher.Publish(ctx, relay.PublishRequest{
//	    ClientID: client.ID,
//	    APIKey:   client.APIKey,
//	    Message:  `{"event":"signup"}`,
//	})
//
// The publish response reflects the persisted acceptance of the message,
// never the delivery outcome: delivery runs as a detached background task
// and is re-driven by the sweeper until it succeeds or the attempt budget
// (default 3) is exhausted.
package relay
