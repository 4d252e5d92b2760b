package storage

import "context"

// TxManager runs a function inside a single database transaction. The
// transaction is carried in the returned context; repository calls made with
// that context join it. A non-nil error from fn rolls the whole transaction
// back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
