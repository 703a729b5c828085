package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopease/internal/model"
	"shopease/pkg/utils"
)

// UserRepository user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdateLastLogin(ctx context.Context, userID uint64) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, page, pageSize int) ([]*model.User, int64, error)

	// Identities streams every username and email, used to warm the registration filter
	Identities(ctx context.Context, fn func(username, email string)) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user; unique violations surface as conflicts
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.NewError(utils.KindConflict, "username or email already exists")
	}
	if err != nil {
		return utils.Persistence(err, "failed to create user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err, utils.ErrUserNotFound, "load user")
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, utils.ErrUserNotFound, "load user")
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.ErrEmailTaken
	}
	if err != nil {
		return utils.Persistence(err, "failed to update user")
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID uint64) error {
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login_at", time.Now().UTC()).Error
	if err != nil {
		return utils.Persistence(err, "failed to update last login")
	}
	return nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *userRepository) exists(ctx context.Context, cond string, arg interface{}) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where(cond, arg).Count(&count).Error; err != nil {
		return false, utils.Persistence(err, "failed to check user")
	}
	return count > 0, nil
}

func (r *userRepository) List(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	query := r.db.WithContext(ctx).Model(&model.User{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to count users")
	}
	if err := query.Scopes(Paginate(page, pageSize)).Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to list users")
	}
	return users, total, nil
}

func (r *userRepository) Identities(ctx context.Context, fn func(username, email string)) error {
	rows, err := r.db.WithContext(ctx).Model(&model.User{}).Select("username", "email").Rows()
	if err != nil {
		return utils.Persistence(err, "failed to scan users")
	}
	defer rows.Close()

	for rows.Next() {
		var username, email string
		if err := rows.Scan(&username, &email); err != nil {
			return utils.Persistence(err, "failed to scan users")
		}
		fn(username, email)
	}
	return rows.Err()
}
