package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Inventory() InventoryRepository
	Variants() VariantRepository
	Orders() OrderRepository
	OrderLines() OrderLineRepository
	Transactions() TransactionRepository
	Returns() SaleItemReturnRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
