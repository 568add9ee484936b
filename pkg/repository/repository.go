package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository is a thin generic gorm store shared by the domain services.
// Methods that take a *gorm.DB participate in the caller's transaction.
type Repository[T any] interface {
	Create(ctx context.Context, db *gorm.DB, record *T) error
	FindByID(ctx context.Context, db *gorm.DB, id any) (*T, error)
	Find(ctx context.Context, db *gorm.DB, conds ...any) ([]T, error)
	First(ctx context.Context, db *gorm.DB, conds ...any) (*T, error)
	Save(ctx context.Context, db *gorm.DB, record *T) error
	Delete(ctx context.Context, db *gorm.DB, record *T) error
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore builds a Repository bound to a default connection. Passing a
// non-nil db to any method overrides the default, which is how services run
// repository calls inside a transaction.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) conn(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return s.db
}

func (s *store[T]) Create(ctx context.Context, db *gorm.DB, record *T) error {
	return s.conn(db).WithContext(ctx).Create(record).Error
}

func (s *store[T]) FindByID(ctx context.Context, db *gorm.DB, id any) (*T, error) {
	var record T
	err := s.conn(db).WithContext(ctx).First(&record, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) Find(ctx context.Context, db *gorm.DB, conds ...any) ([]T, error) {
	var records []T
	if err := s.conn(db).WithContext(ctx).Find(&records, conds...).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store[T]) First(ctx context.Context, db *gorm.DB, conds ...any) (*T, error) {
	var record T
	err := s.conn(db).WithContext(ctx).First(&record, conds...).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) Save(ctx context.Context, db *gorm.DB, record *T) error {
	return s.conn(db).WithContext(ctx).Save(record).Error
}

func (s *store[T]) Delete(ctx context.Context, db *gorm.DB, record *T) error {
	return s.conn(db).WithContext(ctx).Delete(record).Error
}
