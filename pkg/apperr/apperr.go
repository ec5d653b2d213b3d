// Package apperr は生成パイプラインで発生する失敗の分類と、利用者向けメッセージへの正規化を提供します。
package apperr

import (
	"errors"
	"fmt"
)

// 失敗の種類を表すセンチネルエラーです。errors.Is で判定します。
var (
	// ErrProvider は外部サービスが空または利用できない結果を返したことを表します。
	ErrProvider = errors.New("provider error")
	// ErrParse は構造化出力が JSON として解釈できなかったことを表します。再試行可能です。
	ErrParse = errors.New("parse error")
	// ErrPrecondition は前工程の成果物が欠けた状態で操作されたことを表します。
	ErrPrecondition = errors.New("precondition error")
	// ErrFetch は完了したジョブの成果物の取得に失敗したことを表します。
	ErrFetch = errors.New("fetch error")
	// ErrResultMissing は完了したジョブに結果の所在が含まれていなかったことを表します。
	ErrResultMissing = errors.New("result missing")
)

// Error は失敗の種類、発生した操作、利用者向けメッセージ、原因を保持します。
type Error struct {
	Kind    error
	Op      string
	Message string
	Cause   error
}

// Error は操作名とメッセージ、原因を連結して返します。
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap は errors.Is / errors.As が種類と原因の両方を辿れるようにします。
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Wrap は種類と操作名を付与したエラーを生成します。
func Wrap(kind error, op, message string, cause error) error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Provider は ErrProvider 種別のエラーを生成します。
func Provider(op, message string, cause error) error {
	return Wrap(ErrProvider, op, message, cause)
}

// Parse は ErrParse 種別のエラーを生成します。
func Parse(op, message string, cause error) error {
	return Wrap(ErrParse, op, message, cause)
}

// Precondition は ErrPrecondition 種別のエラーを生成します。
func Precondition(op, message string) error {
	return Wrap(ErrPrecondition, op, message, nil)
}

// Fetch は ErrFetch 種別のエラーを生成します。
func Fetch(op, message string, cause error) error {
	return Wrap(ErrFetch, op, message, cause)
}

// ResultMissing は ErrResultMissing 種別のエラーを生成します。
func ResultMissing(op, message string) error {
	return Wrap(ErrResultMissing, op, message, nil)
}

// IsRecoverable は利用者の操作のやり直しで回復できる失敗かどうかを返します。
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrParse)
}
