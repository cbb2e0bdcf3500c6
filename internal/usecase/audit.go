package usecase

import (
	"encoding/json"
	"time"

	"stockledger/internal/domain/model"
)

// 監査ログ1件を組み立てる。before/afterはJSONにする
func auditEntry(actorID int64, action model.AuditAction, resType model.AuditResourceType, resID int64, before, after any, now time.Time) (model.AuditLog, error) {
	log := model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resType,
		ResourceID:   resID,
		CreatedAt:    now,
	}
	if before != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return model.AuditLog{}, err
		}
		log.BeforeJSON = string(b)
	}
	if after != nil {
		b, err := json.Marshal(after)
		if err != nil {
			return model.AuditLog{}, err
		}
		log.AfterJSON = string(b)
	}
	return log, nil
}
