package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/youthhire/safety-engine/pkg/database"
	"github.com/youthhire/safety-engine/pkg/models"
)

// DefaultAuditListLimit caps List when no limit is given.
const DefaultAuditListLimit = 100

// AuditFilter narrows an audit log listing. Zero values match everything.
type AuditFilter struct {
	Action     models.AuditAction
	TargetType string
	TargetID   string
	Limit      int
}

// AuditRepository provides data access for the safety audit log.
type AuditRepository interface {
	// Create inserts a new audit event.
	Create(ctx context.Context, event *models.AuditEvent) error

	// List returns matching events, newest first.
	List(ctx context.Context, filter AuditFilter) ([]*models.AuditEvent, error)
}

type auditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO safety_audit_log (id, action, actor_id, target_type, target_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(ctx, query,
		event.ID,
		event.Action,
		event.ActorID,
		event.TargetType,
		event.TargetID,
		metadataJSON,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}

	return nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]*models.AuditEvent, error) {
	var conditions []string
	var args []any

	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.TargetType != "" {
		args = append(args, filter.TargetType)
		conditions = append(conditions, fmt.Sprintf("target_type = $%d", len(args)))
	}
	if filter.TargetID != "" {
		args = append(args, filter.TargetID)
		conditions = append(conditions, fmt.Sprintf("target_id = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditListLimit
	}
	args = append(args, limit)

	query := `SELECT id, action, actor_id, target_type, target_id, metadata, created_at FROM safety_audit_log`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}

func scanAuditEvent(row pgx.Row) (*models.AuditEvent, error) {
	var e models.AuditEvent
	var metadataJSON []byte

	err := row.Scan(&e.ID, &e.Action, &e.ActorID, &e.TargetType, &e.TargetID, &metadataJSON, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit event: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
		}
	}

	return &e, nil
}
