package usecase

import (
	"context"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"
)

type AuditUsecase struct {
	tx repo.TransactionManager
}

func NewAuditUsecase(tx repo.TransactionManager) *AuditUsecase {
	return &AuditUsecase{tx: tx}
}

type ListAuditLogsOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// 監査ログ一覧（管理者のみ）。新しい順
func (u *AuditUsecase) List(ctx context.Context, actor Actor, f repo.AuditLogFilter) (ListAuditLogsOutput, error) {
	if !actor.IsAdmin() {
		return ListAuditLogsOutput{}, errForbidden("")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return ListAuditLogsOutput{}, errBadRequest("from must be <= to")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	var out ListAuditLogsOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, total, err := r.AuditLogs().List(ctx, f)
		if err != nil {
			return dbError(err)
		}
		out = ListAuditLogsOutput{Items: logs, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})
	if err != nil {
		return ListAuditLogsOutput{}, err
	}
	return out, nil
}
