package application

import "errors"

// ErrInvalidInput は入力値の検証エラー
// 具体的な理由（concert.ErrNameRequired など）と併せて返される
var ErrInvalidInput = errors.New("入力値が不正です")
