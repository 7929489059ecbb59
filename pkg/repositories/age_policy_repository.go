package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/database"
	"github.com/youthhire/safety-engine/pkg/models"
)

// agePolicyLockKey serializes version creation and bootstrap across all
// instances via pg_advisory_xact_lock.
const agePolicyLockKey int64 = 0x6167655f706f6c // "age_pol"

const bootstrapDescription = "Initial policy"

// AgePolicyRepository provides data access for versioned age policies.
type AgePolicyRepository interface {
	// GetActive returns the ACTIVE policy, or ErrNoActivePolicy.
	GetActive(ctx context.Context) (*models.AgePolicy, error)

	// GetByVersion returns a single version, or ErrNotFound.
	GetByVersion(ctx context.Context, version int) (*models.AgePolicy, error)

	// ListVersions returns every version, newest first.
	ListVersions(ctx context.Context) ([]*models.AgePolicy, error)

	// CreateVersion archives the current ACTIVE policy and inserts doc as the
	// next ACTIVE version in one transaction. Returns the new policy and the
	// archived one (nil when there was none).
	CreateVersion(ctx context.Context, doc models.PolicyDocument, description string, createdBy *string) (*models.AgePolicy, *models.AgePolicy, error)

	// Bootstrap inserts doc as a system-created ACTIVE policy when none exists.
	// Returns the ACTIVE policy and whether this call created it.
	Bootstrap(ctx context.Context, doc models.PolicyDocument) (*models.AgePolicy, bool, error)
}

type agePolicyRepository struct {
	db *database.DB
}

// NewAgePolicyRepository creates a new AgePolicyRepository.
func NewAgePolicyRepository(db *database.DB) AgePolicyRepository {
	return &agePolicyRepository{db: db}
}

var _ AgePolicyRepository = (*agePolicyRepository)(nil)

const agePolicyColumns = `id, version, status, policy_json, description, created_by, created_at`

func (r *agePolicyRepository) GetActive(ctx context.Context) (*models.AgePolicy, error) {
	query := `SELECT ` + agePolicyColumns + ` FROM age_policies WHERE status = 'ACTIVE'`

	policy, err := scanAgePolicy(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNoActivePolicy
		}
		return nil, fmt.Errorf("failed to get active age policy: %w", err)
	}
	return policy, nil
}

func (r *agePolicyRepository) GetByVersion(ctx context.Context, version int) (*models.AgePolicy, error) {
	query := `SELECT ` + agePolicyColumns + ` FROM age_policies WHERE version = $1`

	policy, err := scanAgePolicy(r.db.QueryRow(ctx, query, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get age policy version %d: %w", version, err)
	}
	return policy, nil
}

func (r *agePolicyRepository) ListVersions(ctx context.Context) ([]*models.AgePolicy, error) {
	query := `SELECT ` + agePolicyColumns + ` FROM age_policies ORDER BY version DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list age policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.AgePolicy
	for rows.Next() {
		policy, err := scanAgePolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating age policies: %w", err)
	}

	return policies, nil
}

func (r *agePolicyRepository) CreateVersion(ctx context.Context, doc models.PolicyDocument, description string, createdBy *string) (*models.AgePolicy, *models.AgePolicy, error) {
	if err := agegate.ValidatePolicyShape(doc); err != nil {
		return nil, nil, err
	}

	var created, previous *models.AgePolicy
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockAgePolicies(ctx, tx); err != nil {
			return err
		}

		next, err := nextPolicyVersion(ctx, tx)
		if err != nil {
			return err
		}

		// Archive the current version. No row is fine: the store may be empty.
		row := tx.QueryRow(ctx,
			`UPDATE age_policies SET status = 'ARCHIVED' WHERE status = 'ACTIVE' RETURNING `+agePolicyColumns)
		previous, err = scanAgePolicy(row)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to archive active age policy: %w", err)
			}
			previous = nil
		}

		created = &models.AgePolicy{
			ID:          uuid.New(),
			Version:     next,
			Status:      models.PolicyStatusActive,
			PolicyJSON:  doc,
			Description: description,
			CreatedBy:   createdBy,
			CreatedAt:   time.Now().UTC(),
		}
		return insertAgePolicy(ctx, tx, created)
	})
	if err != nil {
		return nil, nil, err
	}

	return created, previous, nil
}

func (r *agePolicyRepository) Bootstrap(ctx context.Context, doc models.PolicyDocument) (*models.AgePolicy, bool, error) {
	if err := agegate.ValidatePolicyShape(doc); err != nil {
		return nil, false, err
	}

	var active *models.AgePolicy
	var created bool
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockAgePolicies(ctx, tx); err != nil {
			return err
		}

		existing, err := scanAgePolicy(tx.QueryRow(ctx,
			`SELECT `+agePolicyColumns+` FROM age_policies WHERE status = 'ACTIVE'`))
		if err == nil {
			active = existing
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to check for active age policy: %w", err)
		}

		next, err := nextPolicyVersion(ctx, tx)
		if err != nil {
			return err
		}

		active = &models.AgePolicy{
			ID:          uuid.New(),
			Version:     next,
			Status:      models.PolicyStatusActive,
			PolicyJSON:  doc,
			Description: bootstrapDescription,
			CreatedAt:   time.Now().UTC(),
		}
		created = true
		return insertAgePolicy(ctx, tx, active)
	})
	if err != nil {
		return nil, false, err
	}

	return active, created, nil
}

func lockAgePolicies(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", agePolicyLockKey); err != nil {
		return fmt.Errorf("failed to lock age policies: %w", err)
	}
	return nil
}

func nextPolicyVersion(ctx context.Context, tx pgx.Tx) (int, error) {
	var next int
	if err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) + 1 FROM age_policies").Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next policy version: %w", err)
	}
	return next, nil
}

func insertAgePolicy(ctx context.Context, tx pgx.Tx, p *models.AgePolicy) error {
	docJSON, err := json.Marshal(p.PolicyJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal policy_json: %w", err)
	}

	query := `
		INSERT INTO age_policies (id, version, status, policy_json, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, query,
		p.ID, p.Version, p.Status, docJSON, p.Description, p.CreatedBy, p.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: age policy version %d already exists", apperrors.ErrConflict, p.Version)
		}
		return fmt.Errorf("failed to insert age policy: %w", err)
	}
	return nil
}

func scanAgePolicy(row pgx.Row) (*models.AgePolicy, error) {
	var p models.AgePolicy
	var docJSON []byte

	err := row.Scan(&p.ID, &p.Version, &p.Status, &docJSON, &p.Description, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(docJSON, &p.PolicyJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy_json for version %d: %w", p.Version, err)
	}

	return &p, nil
}
