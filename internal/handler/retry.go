package handler

import (
	"context"
	"time"

	"stockledger/internal/usecase"

	"github.com/cenkalti/backoff/v4"
)

// ConflictError（直列化失敗・デッドロック・ロック待ちタイムアウト）だけ再試行する
type RetryPolicy struct {
	MaxAttempts  int
	BaseInterval time.Duration
	OnRetry      func(path string)
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.BaseInterval > 0 {
		exp.InitialInterval = p.BaseInterval
	}
	exp.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// fnは毎回新しいトランザクションで走る
func withRetry[T any](ctx context.Context, p RetryPolicy, path string, fn func() (T, error)) (T, error) {
	var out T
	op := func() error {
		v, err := fn()
		if err != nil {
			if usecase.KindOf(err) == usecase.KindConflict {
				return err
			}
			return backoff.Permanent(err)
		}
		out = v
		return nil
	}
	notify := func(error, time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(path)
		}
	}
	if err := backoff.RetryNotify(op, p.backOff(ctx), notify); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
