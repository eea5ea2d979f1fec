package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

const (
	fieldSold      = "sold"
	fieldCheckedIn = "checked_in"
)

// AttendanceCache はコンサートごとの販売数・入場数のキャッシュ
// 値はストアの集計結果の写しで、判定には使わない
type AttendanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAttendanceCache は新しいAttendanceCacheインスタンスを作成する
func NewAttendanceCache(client *redis.Client, ttl time.Duration) *AttendanceCache {
	return &AttendanceCache{client: client, ttl: ttl}
}

// Get はコンサートの集計をキャッシュから取得する
func (c *AttendanceCache) Get(ctx context.Context, concertID string) (ticket.Counts, error) {
	vals, err := c.client.HGetAll(ctx, c.key(concertID)).Result()
	if err != nil {
		return ticket.Counts{}, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	if len(vals) == 0 {
		return ticket.Counts{}, ErrCacheMiss
	}

	sold, err1 := strconv.Atoi(vals[fieldSold])
	checkedIn, err2 := strconv.Atoi(vals[fieldCheckedIn])
	if err1 != nil || err2 != nil {
		// 壊れた値は無かったものとして扱う
		return ticket.Counts{}, ErrCacheMiss
	}
	return ticket.Counts{Sold: sold, CheckedIn: checkedIn}, nil
}

// Set はコンサートの集計をキャッシュに保存する
func (c *AttendanceCache) Set(ctx context.Context, concertID string, counts ticket.Counts) error {
	key := c.key(concertID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldSold, counts.Sold, fieldCheckedIn, counts.CheckedIn)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はコンサートのキャッシュを無効化する
func (c *AttendanceCache) Invalidate(ctx context.Context, concertID string) error {
	err := c.client.Del(ctx, c.key(concertID)).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AttendanceCache) key(concertID string) string {
	return fmt.Sprintf("attendance:%s", concertID)
}
