package ticket

import "errors"

// Ticket ドメインのエラー定義
var (
	ErrTicketNotFound     = errors.New("チケットが見つかりません")
	ErrHolderNameRequired = errors.New("購入者名は必須です")
	ErrConcertIDRequired  = errors.New("コンサートIDは必須です")
	ErrCodeExhausted      = errors.New("チケットコードの採番に失敗しました")
)
