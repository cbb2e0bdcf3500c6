package repository

import (
	"context"
	"fmt"
	"time"

	repo "stockledger/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	inventory    repo.InventoryRepository
	variants     repo.VariantRepository
	orders       repo.OrderRepository
	orderLines   repo.OrderLineRepository
	transactions repo.TransactionRepository
	returns      repo.SaleItemReturnRepository
	users        repo.UserRepository
	auditLogs    repo.AuditLogRepository
}

func (r *txReposGorm) Inventory() repo.InventoryRepository      { return r.inventory }
func (r *txReposGorm) Variants() repo.VariantRepository         { return r.variants }
func (r *txReposGorm) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposGorm) OrderLines() repo.OrderLineRepository     { return r.orderLines }
func (r *txReposGorm) Transactions() repo.TransactionRepository { return r.transactions }
func (r *txReposGorm) Returns() repo.SaleItemReturnRepository   { return r.returns }
func (r *txReposGorm) Users() repo.UserRepository               { return r.users }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository       { return r.auditLogs }

// TxReposはtxを持ったDBでrepoをまとめて作る。Tx外の読み取りにも使う
func TxRepos(db *gorm.DB) repo.TxRepos {
	return &txReposGorm{
		inventory:    NewInventoryGormRepository(db),
		variants:     NewVariantGormRepository(db),
		orders:       NewOrderGormRepository(db),
		orderLines:   NewOrderLineGormRepository(db),
		transactions: NewTransactionGormRepository(db),
		returns:      NewSaleItemReturnGormRepository(db),
		users:        NewUserGormRepository(db),
		auditLogs:    NewAuditLogGormRepository(db),
	}
}

type TxManagerGorm struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewTxManagerGorm(db *gorm.DB, lockTimeout time.Duration) *TxManagerGorm {
	return &TxManagerGorm{db: db, lockTimeout: lockTimeout}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//行ロックを無限に待たない
		if tm.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", tm.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return translateError(err)
			}
		}
		//repoはtxを持ったDBで作り直す
		return fn(TxRepos(tx))
	})
	//commit時のシリアライズ失敗もConflictにそろえる
	return translateError(err)
}
