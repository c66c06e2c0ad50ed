package repository

import (
	"context"
	"errors"

	"smallbiznis-license/pkg/db/option"

	"gorm.io/gorm"
)

// Repository is the generic gorm-backed store shared by the services.
type Repository[T any] interface {
	Find(ctx context.Context, where *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil without error when nothing matches.
	FindOne(ctx context.Context, where *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, value *T) error
	Count(ctx context.Context, where *T, opts ...option.QueryOption) (int64, error)
	Delete(ctx context.Context, where *T, opts ...option.QueryOption) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) query(ctx context.Context, where *T, opts []option.QueryOption) *gorm.DB {
	q := s.db.WithContext(ctx).Model(new(T))
	if where != nil {
		q = q.Where(where)
	}
	for _, opt := range opts {
		q = opt(q)
	}
	return q
}

func (s *store[T]) Find(ctx context.Context, where *T, opts ...option.QueryOption) ([]*T, error) {
	var out []*T
	if err := s.query(ctx, where, opts).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store[T]) FindOne(ctx context.Context, where *T, opts ...option.QueryOption) (*T, error) {
	var out T
	err := s.query(ctx, where, opts).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *store[T]) Create(ctx context.Context, value *T) error {
	return s.db.WithContext(ctx).Create(value).Error
}

func (s *store[T]) Count(ctx context.Context, where *T, opts ...option.QueryOption) (int64, error) {
	var count int64
	if err := s.query(ctx, where, opts).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *store[T]) Delete(ctx context.Context, where *T, opts ...option.QueryOption) (int64, error) {
	q := s.query(ctx, where, opts)
	res := q.Delete(new(T))
	return res.RowsAffected, res.Error
}
