package persistence

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

type organizationRepository struct {
	DB config.PgxIface
}

func NewOrganizationRepository(db config.PgxIface) repository.OrganizationRepository {
	return &organizationRepository{db}
}

func (a organizationRepository) WithQuerier(querier config.PgxIface) repository.OrganizationRepository {
	return &organizationRepository{querier}
}

func (a organizationRepository) GetById(id uuid.UUID) (*domain.Organization, error) {
	org := domain.Organization{}
	return &org, notFound(pgxscan.Get(
		context.Background(), a.DB, &org,
		`SELECT * FROM organization WHERE id = $1`,
		id,
	))
}

func (a organizationRepository) GetByName(name string) (*domain.Organization, error) {
	org := domain.Organization{}
	return &org, notFound(pgxscan.Get(
		context.Background(), a.DB, &org,
		`SELECT * FROM organization WHERE name = $1`,
		name,
	))
}

func (a organizationRepository) GetByAdmin(subject string) ([]domain.Organization, error) {
	orgs := []domain.Organization{}
	return orgs, pgxscan.Select(
		context.Background(), a.DB, &orgs,
		`SELECT organization.*
		FROM organization
		JOIN organization_admin ON organization_admin.organization_id = organization.id
		WHERE organization_admin.subject = $1
		ORDER BY organization.title`,
		subject,
	)
}

func (a organizationRepository) IsAdmin(id uuid.UUID, subject string) (isAdmin bool, err error) {
	err = a.DB.QueryRow(
		context.Background(),
		`SELECT EXISTS (SELECT 1 FROM organization_admin WHERE organization_id = $1 AND subject = $2)`,
		id, subject,
	).Scan(&isAdmin)
	return
}

func (a organizationRepository) AddAdmin(id uuid.UUID, subject string) error {
	_, err := a.DB.Exec(
		context.Background(),
		`INSERT INTO organization_admin (organization_id, subject) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		id, subject,
	)
	return err
}

func (a organizationRepository) Save(org *domain.Organization) error {
	if org.Details == nil {
		org.Details = map[string]any{}
	}
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO organization (name, title, contact_email, details) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		org.Name, org.Title, org.ContactEmail, org.Details,
	).Scan(&org.ID, &org.CreatedAt)
}

type itemCollectionRepository struct {
	DB config.PgxIface
}

func NewItemCollectionRepository(db config.PgxIface) repository.ItemCollectionRepository {
	return &itemCollectionRepository{db}
}

func (a itemCollectionRepository) WithQuerier(querier config.PgxIface) repository.ItemCollectionRepository {
	return &itemCollectionRepository{querier}
}

func (a itemCollectionRepository) GetById(id uuid.UUID) (*domain.ItemCollection, error) {
	ic := domain.ItemCollection{}
	return &ic, notFound(pgxscan.Get(
		context.Background(), a.DB, &ic,
		`SELECT * FROM item_collection WHERE id = $1`,
		id,
	))
}

func (a itemCollectionRepository) GetByOrganizationId(id uuid.UUID) ([]domain.ItemCollection, error) {
	ics := []domain.ItemCollection{}
	return ics, pgxscan.Select(
		context.Background(), a.DB, &ics,
		`SELECT * FROM item_collection WHERE organization_id = $1 ORDER BY created_at DESC`,
		id,
	)
}

func (a itemCollectionRepository) Save(ic *domain.ItemCollection) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO item_collection (organization_id, name, title, description) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		ic.OrganizationID, ic.Name, ic.Title, ic.Description,
	).Scan(&ic.ID, &ic.CreatedAt)
}

type categoryRepository struct {
	DB config.PgxIface
}

func NewCategoryRepository(db config.PgxIface) repository.CategoryRepository {
	return &categoryRepository{db}
}

func (a categoryRepository) WithQuerier(querier config.PgxIface) repository.CategoryRepository {
	return &categoryRepository{querier}
}

func (a categoryRepository) GetById(id uuid.UUID) (*domain.Category, error) {
	category := domain.Category{}
	return &category, notFound(pgxscan.Get(
		context.Background(), a.DB, &category,
		`SELECT * FROM category WHERE id = $1`,
		id,
	))
}

func (a categoryRepository) GetByItemCollectionId(id uuid.UUID) ([]domain.Category, error) {
	categories := []domain.Category{}
	return categories, pgxscan.Select(
		context.Background(), a.DB, &categories,
		`SELECT * FROM category WHERE item_collection_id = $1 ORDER BY seq`,
		id,
	)
}

// Appends the category after the existing ones unless a sequence number is given.
func (a categoryRepository) Save(category *domain.Category) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO category (item_collection_id, name, title, seq)
		VALUES ($1, $2, $3, CASE WHEN $4 > 0 THEN $4 ELSE (SELECT coalesce(max(seq), 0) + 1 FROM category WHERE item_collection_id = $1) END)
		RETURNING id, seq`,
		category.ItemCollectionID, category.Name, category.Title, category.Seq,
	).Scan(&category.ID, &category.Seq)
}
