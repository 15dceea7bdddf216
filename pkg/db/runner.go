package db

import (
	"context"

	"gorm.io/gorm"
)

// TxRunner abstracts transaction execution so services can run against either
// the pooled client or a bare gorm.DB in tests.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormRunner struct {
	db *gorm.DB
}

// RunnerFor wraps a raw gorm handle in a TxRunner.
func RunnerFor(gdb *gorm.DB) TxRunner {
	return gormRunner{db: gdb}
}

func (g gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}
