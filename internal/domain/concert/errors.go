package concert

import "errors"

// Concert ドメインのエラー定義
var (
	ErrConcertNotFound = errors.New("コンサートが見つかりません")
	ErrNameRequired    = errors.New("コンサート名は必須です")
	ErrVenueRequired   = errors.New("会場は必須です")
	ErrDateRequired    = errors.New("開催日は必須です")
)
