package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// UserService covers the identity collaborator surface this core consumes:
// creating users (admin seeding) and resolving them by id or phone. Phone
// and Telegram payload validation belong to the external auth layer.
type UserService struct {
	tx    ports.Transactor
	store ports.Store
}

func NewUserService(tx ports.Transactor, store ports.Store) *UserService {
	return &UserService{tx: tx, store: store}
}

func (s *UserService) Create(ctx context.Context, name, phone string) (domain.User, error) {
	user := domain.User{ID: uuid.NewString(), Name: name, Phone: phone}
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}
	err := s.tx.InTx(ctx, func(st ports.Store) error {
		var err error
		user, err = st.Users().Create(ctx, user)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.store.Users().FindByID(ctx, id)
}

func (s *UserService) FindByPhone(ctx context.Context, phone string) (domain.User, error) {
	return s.store.Users().FindByPhone(ctx, phone)
}
