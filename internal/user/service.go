package user

import "context"

type Service struct {
	repo      Repository
	validator *Validator
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: NewValidator()}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates the payload in create mode before touching the store.
func (s *Service) Create(ctx context.Context, payload Payload) (User, error) {
	if err := s.validator.Validate(payload, ModeCreate); err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, payload.User())
}

// Update validates the payload in update mode and writes only the fields
// that were sent.
func (s *Service) Update(ctx context.Context, id int, payload Payload) (User, error) {
	if err := s.validator.Validate(payload, ModeUpdate); err != nil {
		return User{}, err
	}
	return s.repo.Update(ctx, id, payload)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
