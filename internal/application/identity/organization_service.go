package identity

import (
	"context"
	"strings"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/identity"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrganizationService manages merchant organizations and memberships
type OrganizationService struct {
	orgRepo   identity.OrganizationRepository
	txManager shared.TxManager
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(
	orgRepo identity.OrganizationRepository,
	txManager shared.TxManager,
	events shared.EventPublisher,
	logger *zap.Logger,
) *OrganizationService {
	return &OrganizationService{
		orgRepo:   orgRepo,
		txManager: txManager,
		events:    events,
		logger:    logger,
	}
}

// Create creates an organization and makes the creator its first member.
// An empty slug is derived from the name.
func (s *OrganizationService) Create(ctx context.Context, userID uuid.UUID, input CreateOrganizationInput) (*OrganizationInfo, error) {
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = catalog.Slugify(input.Name)
	}

	exists, err := s.orgRepo.ExistsBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, identity.ErrOrganizationSlug
	}

	org, err := identity.NewOrganization(input.Name, slug)
	if err != nil {
		return nil, err
	}
	org.UpdateProfile(input.Email, input.Website, input.Bio, "")

	err = s.txManager.Transaction(ctx, func(ctx context.Context) error {
		if err := s.orgRepo.Save(ctx, org); err != nil {
			return err
		}
		return s.orgRepo.AddMember(ctx, identity.NewMembership(userID, org.ID))
	})
	if err != nil {
		return nil, err
	}

	if err := shared.PublishAndClear(ctx, s.events, org); err != nil {
		s.logger.Warn("Failed to publish organization events", zap.Error(err))
	}

	s.logger.Info("Organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("user_id", userID.String()))

	info := ToOrganizationInfo(org)
	return &info, nil
}

// List returns the organizations a user belongs to, oldest membership first
func (s *OrganizationService) List(ctx context.Context, userID uuid.UUID) ([]OrganizationInfo, error) {
	orgs, err := s.orgRepo.FindByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	infos := make([]OrganizationInfo, 0, len(orgs))
	for i := range orgs {
		infos = append(infos, ToOrganizationInfo(&orgs[i]))
	}
	return infos, nil
}

// Resolve returns the organization a merchant request acts for. A requested
// ID must be one of the user's memberships; without one, the user's first
// organization is used.
func (s *OrganizationService) Resolve(ctx context.Context, userID uuid.UUID, requested string) (*identity.Organization, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		orgs, err := s.orgRepo.FindByMember(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(orgs) == 0 {
			return nil, identity.ErrNoOrganization
		}
		return &orgs[0], nil
	}

	orgID, err := uuid.Parse(requested)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage("Invalid organization ID")
	}
	member, err := s.orgRepo.IsMember(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, identity.ErrNotMember
	}
	return s.orgRepo.FindByID(ctx, orgID)
}

// GetBySlug returns a live organization by its public slug
func (s *OrganizationService) GetBySlug(ctx context.Context, slug string) (*identity.Organization, error) {
	return s.orgRepo.FindBySlug(ctx, strings.TrimSpace(slug))
}
