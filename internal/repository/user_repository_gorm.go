package repository

import (
	"context"
	stderrors "errors"

	"github.com/samber/oops"
	"gorm.io/gorm"

	"secrets/internal/errors"
	"secrets/internal/model"
)

type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository builds a GORM-backed repository. The unique index on
// email enforces uniqueness; db must be opened with TranslateError so that the
// driver's duplicate-key error surfaces as gorm.ErrDuplicatedKey.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrDuplicateEmail
		}
		return oops.Code("STORE_INSERT_FAILED").Wrapf(err, "create user")
	}
	return nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateLookupError(err)
	}
	return &user, nil
}

func (r *gormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateLookupError(err)
	}
	return &user, nil
}

func translateLookupError(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrUserNotFound
	}
	return oops.Code("STORE_LOOKUP_FAILED").Wrapf(err, "find user")
}
