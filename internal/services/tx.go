package services

import (
	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
)

// inTx runs fn inside a transaction on db, reusing the caller's transaction when
// there is one. A nil db runs fn against whatever dbc already carries.
func inTx(dbc dbctx.Context, db *gorm.DB, fn func(dbctx.Context) error) error {
	if dbc.Tx != nil || db == nil {
		return fn(dbc)
	}
	return db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
