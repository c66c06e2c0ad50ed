package license

import (
	"context"
	"errors"
	"strings"
	"time"

	"smallbiznis-license/pkg/db/option"
	"smallbiznis-license/pkg/repository"

	"gorm.io/gorm"
)

// ErrDuplicateKey reports an insert that collided with an existing license key.
var ErrDuplicateKey = errors.New("license key already exists")

type ListParams struct {
	// BeforeID restricts the page to rows older than this cursor.
	BeforeID uint64
	// Limit of zero returns every row.
	Limit int
}

// Repository describes the persistence operations of the registry.
type Repository interface {
	Create(ctx context.Context, license *License) error
	// FindByKey and FindByKeyAndMachine return nil without error when nothing matches.
	FindByKey(ctx context.Context, key string) (*License, error)
	FindByKeyAndMachine(ctx context.Context, key, machineID string) (*License, error)
	// BindMachine binds an unbound license. It reports false when the
	// license was bound concurrently and nothing was written.
	BindMachine(ctx context.Context, id uint64, machineID string, at time.Time) (bool, error)
	ResetMachine(ctx context.Context, id uint64) error
	SetActive(ctx context.Context, id uint64, active bool) error
	List(ctx context.Context, params ListParams) ([]*License, error)
	Count(ctx context.Context) (int64, error)
}

type gormRepository struct {
	db    *gorm.DB
	store repository.Repository[License]
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{
		db:    db,
		store: repository.ProvideStore[License](db),
	}
}

func (r *gormRepository) Create(ctx context.Context, license *License) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	if err := r.store.Create(ctx, license); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindByKey(ctx context.Context, key string) (*License, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	return r.store.FindOne(ctx, &License{LicenseKey: key})
}

func (r *gormRepository) FindByKeyAndMachine(ctx context.Context, key, machineID string) (*License, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	return r.store.FindOne(ctx, &License{LicenseKey: key, MachineID: &machineID})
}

func (r *gormRepository) BindMachine(ctx context.Context, id uint64, machineID string, at time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).Model(&License{}).
		Where("id = ? AND machine_id IS NULL", id).
		Updates(map[string]any{
			"machine_id":   machineID,
			"activated_at": at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormRepository) ResetMachine(ctx context.Context, id uint64) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	return r.db.WithContext(ctx).Model(&License{}).
		Where("id = ?", id).
		Update("machine_id", nil).Error
}

func (r *gormRepository) SetActive(ctx context.Context, id uint64, active bool) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	return r.db.WithContext(ctx).Model(&License{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

// List returns licenses newest first.
func (r *gormRepository) List(ctx context.Context, params ListParams) ([]*License, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(params.Limit),
	}
	if params.BeforeID > 0 {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "id", Operator: option.LT, Value: params.BeforeID}))
	}

	return r.store.Find(ctx, nil, opts...)
}

func (r *gormRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	return r.store.Count(ctx, nil)
}

var duplicateMarkers = []string{
	"unique constraint failed",
	"duplicate key",
	"duplicate entry",
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range duplicateMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
