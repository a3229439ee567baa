// Package postgres provides PostgreSQL implementation of the orgs repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/orgs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository implements the orgs.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateOrg inserts a new organization.
func (r *Repository) CreateOrg(ctx context.Context, org *domain.Org) error {
	query := `
		INSERT INTO orgs (name, slug)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, org.Name, org.Slug).
		Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return orgs.ErrSlugExists
		}
		return fmt.Errorf("create org: %w", err)
	}
	return nil
}

// GetOrgByID retrieves an organization by its ID.
func (r *Repository) GetOrgByID(ctx context.Context, id string) (*domain.Org, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM orgs
		WHERE id = $1
	`
	return r.scanOrg(r.db.QueryRow(ctx, query, id), "get org by id")
}

// GetOrgBySlug retrieves an organization by its slug.
func (r *Repository) GetOrgBySlug(ctx context.Context, slug string) (*domain.Org, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM orgs
		WHERE slug = $1
	`
	return r.scanOrg(r.db.QueryRow(ctx, query, slug), "get org by slug")
}

func (r *Repository) scanOrg(row pgx.Row, op string) (*domain.Org, error) {
	var org domain.Org
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orgs.ErrOrgNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &org, nil
}

// ListOrgs retrieves all organizations ordered by name.
func (r *Repository) ListOrgs(ctx context.Context) ([]domain.Org, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM orgs
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orgs: %w", err)
	}
	defer rows.Close()

	var result []domain.Org
	for rows.Next() {
		var org domain.Org
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan org: %w", err)
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

// UpdateOrg updates an organization's name. The slug is immutable.
func (r *Repository) UpdateOrg(ctx context.Context, org *domain.Org) error {
	query := `
		UPDATE orgs
		SET name = $1
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, org.Name, org.ID)
	if err != nil {
		return fmt.Errorf("update org: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return orgs.ErrOrgNotFound
	}
	return nil
}

// DeleteOrg removes an organization and its memberships.
func (r *Repository) DeleteOrg(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orgs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete org: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return orgs.ErrOrgNotFound
	}
	return nil
}

// AddMember adds a profile to an organization. Adding an existing member
// is a no-op.
func (r *Repository) AddMember(ctx context.Context, orgID, profileID string) error {
	query := `
		INSERT INTO org_members (org_id, profile_id)
		VALUES ($1, $2)
		ON CONFLICT (org_id, profile_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, orgID, profileID); err != nil {
		return fmt.Errorf("add org member: %w", err)
	}
	return nil
}

// RemoveMember removes a profile from an organization.
func (r *Repository) RemoveMember(ctx context.Context, orgID, profileID string) error {
	query := `
		DELETE FROM org_members
		WHERE org_id = $1 AND profile_id = $2
	`
	tag, err := r.db.Exec(ctx, query, orgID, profileID)
	if err != nil {
		return fmt.Errorf("remove org member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return orgs.ErrMemberNotFound
	}
	return nil
}

// IsMember reports whether a profile belongs to an organization.
func (r *Repository) IsMember(ctx context.Context, orgID, profileID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM org_members
			WHERE org_id = $1 AND profile_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, orgID, profileID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check org membership: %w", err)
	}
	return exists, nil
}

// ListMembers retrieves all member profiles of an organization.
func (r *Repository) ListMembers(ctx context.Context, orgID string) ([]domain.Profile, error) {
	query := `
		SELECT p.id, p.email, p.name, p.role, p.is_system, p.created_at, p.updated_at
		FROM profiles p
		JOIN org_members m ON m.profile_id = p.id
		WHERE m.org_id = $1
		ORDER BY p.name
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list org members: %w", err)
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		var p domain.Profile
		err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.IsSystem, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan org member: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ListAdminProfileIDs retrieves IDs of org members with the admin role.
func (r *Repository) ListAdminProfileIDs(ctx context.Context, orgID string) ([]string, error) {
	query := `
		SELECT p.id
		FROM profiles p
		JOIN org_members m ON m.profile_id = p.id
		WHERE m.org_id = $1 AND p.role = 'admin'
		ORDER BY p.id
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list org admins: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan admin id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
