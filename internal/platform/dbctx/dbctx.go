package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the request context together with an optional transaction.
// Repos fall back to their own *gorm.DB when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context {
	return Context{Ctx: ctx}
}
