package concert

import "context"

// Repository はコンサートリポジトリのインターフェース
type Repository interface {
	// Create は新しいコンサートを永続化し、IDを採番して c.ID に設定する
	Create(ctx context.Context, c *Concert) error

	// GetByID はIDからコンサートを取得する
	GetByID(ctx context.Context, id string) (*Concert, error)

	// List は作成順にコンサート一覧を取得する
	List(ctx context.Context) ([]*Concert, error)
}
