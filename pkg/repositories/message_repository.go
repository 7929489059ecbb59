package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/database"
	"github.com/youthhire/safety-engine/pkg/models"
)

// DefaultMessageListLimit caps ListByConversation when no limit is given.
const DefaultMessageListLimit = 200

// MessageRepository provides data access for conversation messages.
// Messages are append-only; the only permitted update is legacy classification.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.ConversationMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ConversationMessage, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ConversationMessage, error)

	// CountUnclassified returns how many messages MarkLegacy would change.
	CountUnclassified(ctx context.Context) (int64, error)

	// MarkLegacy sets is_legacy on every message without an intent that is not
	// already legacy, and returns the number of rows changed.
	MarkLegacy(ctx context.Context) (int64, error)
}

type messageRepository struct {
	db *database.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *database.DB) MessageRepository {
	return &messageRepository{db: db}
}

var _ MessageRepository = (*messageRepository)(nil)

const messageColumns = `id, conversation_id, sender_id, intent, rendered_text, variables, is_legacy, reply_to_id, created_at`

func (r *messageRepository) Create(ctx context.Context, msg *models.ConversationMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = time.Now().UTC()

	variables := msg.Variables
	if variables == nil {
		variables = map[string]string{}
	}
	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	query := `
		INSERT INTO conversation_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Intent,
		msg.RenderedText,
		variablesJSON,
		msg.IsLegacy,
		msg.ReplyToID,
		msg.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: message %s already exists", apperrors.ErrConflict, msg.ID)
		}
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ConversationMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM conversation_messages WHERE id = $1`

	msg, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ConversationMessage, error) {
	if limit <= 0 {
		limit = DefaultMessageListLimit
	}

	query := `
		SELECT ` + messageColumns + `
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ConversationMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func (r *messageRepository) CountUnclassified(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversation_messages WHERE intent IS NULL AND is_legacy = false`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unclassified messages: %w", err)
	}
	return count, nil
}

func (r *messageRepository) MarkLegacy(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE conversation_messages SET is_legacy = true WHERE intent IS NULL AND is_legacy = false`)
	if err != nil {
		return 0, fmt.Errorf("failed to mark legacy messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMessage(row pgx.Row) (*models.ConversationMessage, error) {
	var m models.ConversationMessage
	var variablesJSON []byte

	err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.Intent,
		&m.RenderedText,
		&variablesJSON,
		&m.IsLegacy,
		&m.ReplyToID,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &m.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	return &m, nil
}
