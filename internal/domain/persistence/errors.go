// Package persistence はストア実装に共通するエラーを定義する
package persistence

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable は永続化媒体の読み書きに失敗したことを表す
// この場合、要求された操作は成功として報告されない
var ErrStoreUnavailable = errors.New("ストアを利用できません")

var (
	// ErrStoreBusy は書き込みロックの待機がタイムアウトしたことを表す
	// 媒体には何も書き込まれていないため再試行してよい
	ErrStoreBusy = fmt.Errorf("%w: 書き込みロックの取得がタイムアウトしました", ErrStoreUnavailable)

	// ErrCorruptSnapshot は永続化データが壊れていることを表す
	ErrCorruptSnapshot = fmt.Errorf("%w: 永続化データが破損しています", ErrStoreUnavailable)
)

// Unavailable は err を ErrStoreUnavailable でラップする
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// IsRetryable は再試行して安全なエラーかを返す
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreBusy)
}
