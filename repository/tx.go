package repository

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// RunInTx executes fn inside a single database transaction and rolls the
// whole unit back if fn returns an error. Repositories participate by
// rebinding onto the transaction:
//
//	err := repository.RunInTx(ctx, db, func(ctx context.Context, tx bun.Tx) error {
//	    users := repo.WithDB(tx)
//	    ...
//	})
//
// The returned error is classified, so a connection drop mid-transaction
// surfaces as ErrStoreUnavailable just like it would on a single statement.
func RunInTx(ctx context.Context, db *bun.DB, fn func(ctx context.Context, tx bun.Tx) error) error {
	return classify(db.RunInTx(ctx, &sql.TxOptions{}, fn))
}
