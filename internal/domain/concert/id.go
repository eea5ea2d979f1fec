package concert

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID はコンサートIDを生成する（UUIDv4、crypto/rand 由来）
func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("コンサートIDの生成に失敗: %w", err)
	}
	return id.String(), nil
}

// MaxIDAttempts はID衝突時の再生成上限
const MaxIDAttempts = 5
