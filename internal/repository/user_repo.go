package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/models"
)

// ErrEmailConflict indicates the unique email index rejected the insert.
// Registration checks the email first, but a concurrent insert can still win
// the race; the conflict surfaces here instead of as a raw driver error.
var ErrEmailConflict = errors.New("email already exists")

// UserFilter narrows user listing queries from the moderation console.
type UserFilter struct {
	Search   string
	Stage    string
	Grade    string
	Status   string
	Page     int
	PageSize int
}

// UserRepository is the authoritative store of users, their moderation
// status and violation history.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	ListByClass(ctx context.Context, stage, grade string) ([]models.User, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (models.User, error)
	Delete(ctx context.Context, id string) error

	// ApplySanction updates the account status and appends the violation
	// record in a single transaction so concurrent readers observe both
	// changes or neither.
	ApplySanction(ctx context.Context, id string, status models.UserStatus, violation models.ViolationRecord) (models.User, error)
	ListViolations(ctx context.Context, userID string) ([]models.ViolationRecord, error)

	Block(ctx context.Context, ownerID, blockedID string) error
	Unblock(ctx context.Context, ownerID, blockedID string) error
	ListBlockedIDs(ctx context.Context, ownerID string) ([]string, error)

	SetCurrentRoom(ctx context.Context, id string, roomID *string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil && isUniqueViolation(err) {
		return ErrEmailConflict
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.Grade != "" {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var users []models.User
	if err := query.Order("created_at ASC, id ASC").Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) ListByClass(ctx context.Context, stage, grade string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("stage = ? AND grade = ?", stage, grade).
		Order("created_at ASC, id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, "id = ?", id).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? OR blocked_id = ?", id, id).Delete(&models.UserBlock{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ViolationRecord{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *userRepository) ApplySanction(ctx context.Context, id string, status models.UserStatus, violation models.ViolationRecord) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Update("status", status).Error; err != nil {
			return err
		}
		violation.UserID = id
		if err := tx.Create(&violation).Error; err != nil {
			return err
		}
		user.Status = status
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) ListViolations(ctx context.Context, userID string) ([]models.ViolationRecord, error) {
	var violations []models.ViolationRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&violations).Error
	if err != nil {
		return nil, err
	}
	return violations, nil
}

func (r *userRepository) Block(ctx context.Context, ownerID, blockedID string) error {
	block := models.UserBlock{OwnerID: ownerID, BlockedID: blockedID}
	err := r.db.WithContext(ctx).Create(&block).Error
	if err != nil && isUniqueViolation(err) {
		// Blocking an already blocked user is a no-op.
		return nil
	}
	return err
}

func (r *userRepository) Unblock(ctx context.Context, ownerID, blockedID string) error {
	return r.db.WithContext(ctx).
		Where("owner_id = ? AND blocked_id = ?", ownerID, blockedID).
		Delete(&models.UserBlock{}).Error
}

func (r *userRepository) ListBlockedIDs(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.UserBlock{}).
		Where("owner_id = ?", ownerID).
		Pluck("blocked_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *userRepository) SetCurrentRoom(ctx context.Context, id string, roomID *string) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("current_room_id", roomID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique") || strings.Contains(message, "duplicate")
}
