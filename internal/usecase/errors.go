package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "stockledger/internal/repository"
)

type ErrorKind string

const (
	KindNotFound   ErrorKind = "NotFoundError"
	KindForbidden  ErrorKind = "ForbiddenError"
	KindBadRequest ErrorKind = "BadRequestError"
	KindStock      ErrorKind = "StockError"
	KindDiscount   ErrorKind = "DiscountError"
	KindConflict   ErrorKind = "ConflictError"
)

// 行ごとのエラー。UIが行に紐付けられるようにidを持つ
type ErrorDetail struct {
	ID        int64     `json:"id"`
	ErrorType ErrorKind `json:"errorType"`
	Detail    string    `json:"detail"`
}

type HTTPError struct {
	Status    int
	Kind      ErrorKind
	Message   string
	Errors    []ErrorDetail
	Available *int64
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// BadRequestとその派生（Stock/Discount）
func (e *HTTPError) IsBadRequest() bool {
	switch e.Kind {
	case KindBadRequest, KindStock, KindDiscount:
		return true
	}
	return false
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Kind:    kindForStatus(status),
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func KindOf(err error) ErrorKind {
	if he, ok := AsHTTPError(err); ok {
		return he.Kind
	}
	return ""
}

func IsBadRequest(err error) bool {
	he, ok := AsHTTPError(err)
	return ok && he.IsBadRequest()
}

const (
	msgNotFound  = "Oops! We couldn't find what you're looking for."
	msgForbidden = "You do not have permission to perform this action."
)

func errNotFound(message string) error {
	if message == "" {
		message = msgNotFound
	}
	return &HTTPError{Status: http.StatusNotFound, Kind: KindNotFound, Message: message}
}

func errForbidden(message string) error {
	if message == "" {
		message = msgForbidden
	}
	return &HTTPError{Status: http.StatusForbidden, Kind: KindForbidden, Message: message}
}

func errBadRequest(message string) error {
	return &HTTPError{Status: http.StatusBadRequest, Kind: KindBadRequest, Message: message}
}

// 在庫不足。availableを添える
func errStock(message string, available int64) error {
	return &HTTPError{Status: http.StatusBadRequest, Kind: KindStock, Message: message, Available: &available}
}

func errDiscount(message string, available *int64) error {
	return &HTTPError{Status: http.StatusBadRequest, Kind: KindDiscount, Message: message, Available: available}
}

// 行ごとのエラーをまとめて400
func errValidation(message string, details []ErrorDetail) error {
	return &HTTPError{Status: http.StatusBadRequest, Kind: KindBadRequest, Message: message, Errors: details}
}

// repositoryのエラーをHTTPErrorへ。HTTPErrorはそのまま返す
func dbError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return errNotFound("")
	case errors.Is(err, repo.ErrConflict):
		return &HTTPError{Status: http.StatusConflict, Kind: KindConflict, Message: "concurrent update, please retry"}
	}
	return fmt.Errorf("db error: %w", err)
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadRequest:
		return KindBadRequest
	}
	return ""
}
