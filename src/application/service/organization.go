package service

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
	"github.com/input-output-hk/boxoffice/src/infrastructure/persistence"
)

type OrganizationService interface {
	WithQuerier(config.PgxIface) OrganizationService

	GetById(uuid.UUID) (*domain.Organization, error)
	GetByName(string) (*domain.Organization, error)
	GetByAdmin(string) ([]domain.Organization, error)
	IsAdmin(uuid.UUID, string) (bool, error)
	AddAdmin(uuid.UUID, string) error
	Save(*domain.Organization) error
}

type organizationService struct {
	logger                 zerolog.Logger
	organizationRepository repository.OrganizationRepository
}

func NewOrganizationService(db config.PgxIface, logger *zerolog.Logger) OrganizationService {
	return &organizationService{
		logger:                 logger.With().Str("component", "OrganizationService").Logger(),
		organizationRepository: persistence.NewOrganizationRepository(db),
	}
}

func (self organizationService) WithQuerier(querier config.PgxIface) OrganizationService {
	return &organizationService{
		logger:                 self.logger,
		organizationRepository: self.organizationRepository.WithQuerier(querier),
	}
}

func (self organizationService) GetById(id uuid.UUID) (org *domain.Organization, err error) {
	self.logger.Trace().Stringer("id", id).Msg("Getting Organization by ID")
	org, err = self.organizationRepository.GetById(id)
	err = errors.WithMessagef(err, "Could not select existing Organization with ID %q", id)
	self.logger.Trace().Stringer("id", id).Err(err).Msg("Got Organization by ID")
	return
}

func (self organizationService) GetByName(name string) (org *domain.Organization, err error) {
	self.logger.Trace().Str("name", name).Msg("Getting Organization by name")
	org, err = self.organizationRepository.GetByName(name)
	err = errors.WithMessagef(err, "Could not select existing Organization with name %q", name)
	self.logger.Trace().Str("name", name).Err(err).Msg("Got Organization by name")
	return
}

func (self organizationService) GetByAdmin(subject string) (orgs []domain.Organization, err error) {
	self.logger.Trace().Str("subject", subject).Msg("Getting Organizations by admin")
	orgs, err = self.organizationRepository.GetByAdmin(subject)
	err = errors.WithMessagef(err, "Could not select Organizations administered by %q", subject)
	self.logger.Trace().Str("subject", subject).Int("count", len(orgs)).Err(err).Msg("Got Organizations by admin")
	return
}

func (self organizationService) IsAdmin(id uuid.UUID, subject string) (isAdmin bool, err error) {
	if subject == "" {
		return false, nil
	}
	isAdmin, err = self.organizationRepository.IsAdmin(id, subject)
	err = errors.WithMessagef(err, "Could not check whether %q administers Organization %q", subject, id)
	return
}

func (self organizationService) AddAdmin(id uuid.UUID, subject string) error {
	self.logger.Debug().Stringer("id", id).Str("subject", subject).Msg("Adding Organization admin")
	return errors.WithMessagef(
		self.organizationRepository.AddAdmin(id, subject),
		"Could not add %q as admin of Organization %q", subject, id,
	)
}

func (self organizationService) Save(org *domain.Organization) error {
	if org.Name == "" {
		org.Name = domain.MakeName(org.Title)
	}
	self.logger.Trace().Str("name", org.Name).Msg("Saving new Organization")
	if err := self.organizationRepository.Save(org); err != nil {
		return errors.WithMessagef(err, "Could not insert Organization %q", org.Name)
	}
	self.logger.Trace().Str("name", org.Name).Stringer("id", org.ID).Msg("Created Organization")
	return nil
}
