package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/logger"
)

// Profile is the verified provider data a user is created or synced from.
type Profile struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// Service encapsulates user-related business logic
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now, newID: uuid.NewString}
}

// FindOrCreate returns the user for p.Sub, registering it on first sight.
// Concurrent first sign-ins for one subject race on Create; the loser sees
// ErrDuplicateSubject and reads the winner's record. created reports whether
// this call inserted the user.
func (s *Service) FindOrCreate(ctx context.Context, p Profile) (u *models.User, created bool, err error) {
	if p.Sub == "" {
		return nil, false, errors.New("users: empty subject")
	}
	u, err = s.repo.FindBySub(ctx, p.Sub)
	switch {
	case err == nil:
		u, err = s.syncProfile(ctx, u, p)
		return u, false, err
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	now := s.now().UTC()
	u = &models.User{
		ID:         s.newID(),
		Sub:        p.Sub,
		Email:      p.Email,
		Name:       p.Name,
		PictureURL: p.Picture,
		Roles:      []string{models.RoleUser},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.repo.Create(ctx, u)
	if errors.Is(err, ErrDuplicateSubject) {
		logger.Debugf("users: concurrent registration for sub=%s, reading existing record", p.Sub)
		u, err = s.repo.FindBySub(ctx, p.Sub)
		if err != nil {
			return nil, false, err
		}
		u, err = s.syncProfile(ctx, u, p)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	logger.Infof("users: registered id=%s sub=%s", u.ID, u.Sub)
	return u, true, nil
}

// syncProfile copies a changed name or picture from the provider. Empty
// provider values never clear stored ones.
func (s *Service) syncProfile(ctx context.Context, u *models.User, p Profile) (*models.User, error) {
	name, picture := u.Name, u.PictureURL
	if p.Name != "" {
		name = p.Name
	}
	if p.Picture != "" {
		picture = p.Picture
	}
	if name == u.Name && picture == u.PictureURL {
		return u, nil
	}
	if err := s.repo.UpdateProfile(ctx, u.ID, name, picture); err != nil {
		return nil, err
	}
	u.Name, u.PictureURL = name, picture
	return u, nil
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.FindBySub(ctx, sub)
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

// Delete removes the user with id, returning ErrNotFound when absent.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.repo.DeleteByID(ctx, id)
}
