// classify-legacy-messages marks conversation messages that predate structured
// intents as read-only legacy messages. Runs are idempotent: messages already
// marked, or carrying an intent, are never touched.
//
// Usage: go run ./scripts/classify-legacy-messages [-dry-run=false] [-actor=<operator-id>]
//
// Database connection: Uses standard PG* environment variables
//
// Flags:
//
//	-dry-run   Show what would be classified without changing anything (default: true)
//	-actor     Operator ID recorded in the audit log
//	-sample    Number of affected messages to show in a dry run (default: 20)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/audit"
	"github.com/youthhire/safety-engine/pkg/database"
	"github.com/youthhire/safety-engine/pkg/leakcheck"
	"github.com/youthhire/safety-engine/pkg/logging"
	"github.com/youthhire/safety-engine/pkg/repositories"
	"github.com/youthhire/safety-engine/pkg/services"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Show what would be classified without changing anything")
	actor := flag.String("actor", "", "Operator ID recorded in the audit log")
	sample := flag.Int("sample", 20, "Number of affected messages to show in a dry run")
	flag.Parse()

	ctx := context.Background()
	if *actor != "" {
		ctx = audit.WithRequestInfo(ctx, audit.RequestInfo{ActorID: *actor})
	}

	pool, err := pgxpool.New(ctx, buildConnString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %s\n", logging.SanitizeError(err))
		os.Exit(1)
	}
	db := &database.DB{Pool: pool}
	defer db.Close()

	logger := zap.NewNop()
	messages := repositories.NewMessageRepository(db)
	legacy := services.NewLegacyService(
		messages,
		services.NewAuditService(repositories.NewAuditRepository(db), logger),
		audit.NewSafetyAuditor(logger),
		logger,
	)

	if *dryRun {
		fmt.Println("DRY RUN - no changes will be made")
		fmt.Println("Run with -dry-run=false to classify messages")
		fmt.Println()

		if err := printSample(ctx, db, *sample); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list messages: %v\n", err)
			os.Exit(1)
		}
	}

	result, err := legacy.Classify(ctx, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Classification failed: %s\n", logging.SanitizeError(err))
		os.Exit(1)
	}

	if *dryRun {
		fmt.Printf("\nTotal messages that would be classified as legacy: %d\n", result.Classified)
	} else {
		fmt.Printf("Messages classified as legacy: %d\n", result.Classified)
	}
}

// printSample lists the oldest affected messages. Text is redacted so running
// the tool does not copy contact details into a terminal scrollback.
func printSample(ctx context.Context, db *database.DB, limit int) error {
	if limit <= 0 {
		return nil
	}

	rows, err := db.Query(ctx, `
		SELECT id, conversation_id, rendered_text, created_at
		FROM conversation_messages
		WHERE intent IS NULL AND is_legacy = false
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	detector := leakcheck.NewDefaultDetector()
	var count int
	for rows.Next() {
		var id, conversationID uuid.UUID
		var text string
		var createdAt time.Time
		if err := rows.Scan(&id, &conversationID, &text, &createdAt); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		count++
		fmt.Printf("  %s  conversation %s  %s  %q\n",
			createdAt.Format(time.RFC3339), conversationID, id, logging.SanitizeValue(text, detector))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("  No unclassified messages")
	}
	return nil
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "safety")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "safety_engine")
	sslmode := getEnvOrDefault("PGSSLMODE", "disable")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		host, port, user, dbname, sslmode)
	if password != "" {
		connStr += fmt.Sprintf(" password='%s'", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
