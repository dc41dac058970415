package shared

import "context"

// TxManager runs a unit of work in one database transaction. Repository calls
// made with the context handed to fn join that transaction.
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
