package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// UserDirectory resolves user ids to profiles. Lookups of unknown ids return
// repo.ErrNotFound.
type UserDirectory interface {
	// GetUser returns any user.
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetProvider returns the user only if it is flagged as a provider.
	GetProvider(ctx context.Context, id string) (*domain.User, error)
}

// DBDirectory is the UserDirectory backed by the users table.
type DBDirectory struct {
	DB *gorm.DB
}

// GetUser proxies repo.GetUser.
func (d DBDirectory) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return repo.GetUser(ctx, d.DB, id)
}

// GetProvider proxies repo.GetProvider.
func (d DBDirectory) GetProvider(ctx context.Context, id string) (*domain.User, error) {
	return repo.GetProvider(ctx, d.DB, id)
}

// ProviderService lists the providers a client can book with.
type ProviderService struct {
	DB *gorm.DB
}

// List returns every provider's public profile ordered by name.
func (s *ProviderService) List(ctx context.Context) ([]domain.User, error) {
	return repo.ListProviders(ctx, s.DB)
}
