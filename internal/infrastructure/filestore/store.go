// Package filestore は1つのJSONスナップショットファイルに全データを保存するストア実装
//
// 書き込みは1スロットのセマフォで直列化され、スナップショットは
// 一時ファイル→fsync→rename で置き換えられる。メモリ上の状態は
// 永続化が完了してから差し替えるため、成功を返した変更は必ずファイルに残り、
// 失敗した変更は誰からも観測されない。
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/persistence"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
)

// DefaultLockTimeout は書き込みロック待機のデフォルト上限
const DefaultLockTimeout = 5 * time.Second

// Options はストアの設定
type Options struct {
	// LockTimeout は書き込みロックを待つ最大時間（0以下ならデフォルト）
	LockTimeout time.Duration
}

// Store はファイルベースのストア
type Store struct {
	path        string
	lockTimeout time.Duration
	writeSlot   chan struct{}

	mu    sync.RWMutex
	state *state

	newConcertID func() (string, error)
	newCode      func() (string, error)
	writeFile    func(path string, data []byte) error
}

// Open はスナップショットファイルを読み込んでストアを開く
// ファイルが無ければ空のストアとして作成する。ファイルが空・解析不能・
// 不整合の場合は persistence.ErrCorruptSnapshot を返し、空として扱うことはしない
func Open(path string, opts Options) (*Store, error) {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	s := &Store{
		path:         path,
		lockTimeout:  opts.LockTimeout,
		writeSlot:    make(chan struct{}, 1),
		newConcertID: concert.NewID,
		newCode:      ticket.NewCode,
		writeFile:    writeSnapshotFile,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, persistence.Unavailable("ストアディレクトリの作成", err)
	}
	if err := removeStaleTempFiles(path); err != nil {
		return nil, persistence.Unavailable("一時ファイルの削除", err)
	}

	snap, err := readSnapshot(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.state = newState()
		data, err := encodeSnapshot(s.state.snapshot())
		if err != nil {
			return nil, persistence.Unavailable("ストアの初期化", err)
		}
		if err := s.writeFile(path, data); err != nil {
			return nil, persistence.Unavailable("ストアの初期化", err)
		}
		logger.Info("空のストアを作成しました", zap.String("path", path))
		return s, nil
	case errors.Is(err, persistence.ErrCorruptSnapshot):
		return nil, err
	case err != nil:
		return nil, persistence.Unavailable("ストアの読み込み", err)
	}

	st, err := stateFromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.state = st
	logger.Info("ストアを読み込みました",
		zap.String("path", path),
		zap.Int("concerts", len(st.concerts)),
		zap.Int("tickets", len(st.tickets)),
	)
	return s, nil
}

// Concerts はコンサートリポジトリとしてのビューを返す
func (s *Store) Concerts() *ConcertRepository { return &ConcertRepository{store: s} }

// Tickets はチケットリポジトリとしてのビューを返す
func (s *Store) Tickets() *TicketRepository { return &TicketRepository{store: s} }

// Path はスナップショットファイルのパスを返す
func (s *Store) Path() string { return s.path }

// current は公開済みの状態を返す（返り値は変更しないこと）
func (s *Store) current() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// acquire は書き込みスロットを取得する
// 待機はコンテキストと lockTimeout で打ち切られる
func (s *Store) acquire(ctx context.Context) (func(), error) {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case s.writeSlot <- struct{}{}:
		return func() { <-s.writeSlot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, persistence.ErrStoreBusy
	}
}

// mutate は書き込みを直列化して実行する
// fn は clone された状態を変更し、変更したかどうかを返す。
// 変更があればスナップショットを永続化してから状態を差し替える
func (s *Store) mutate(ctx context.Context, op string, fn func(next *state) (bool, error)) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return err
	}

	next := s.current().clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return err
	}

	data, err := encodeSnapshot(next.snapshot())
	if err != nil {
		return persistence.Unavailable(op, err)
	}
	if err := s.writeFile(s.path, data); err != nil {
		logger.Error("スナップショットの書き込みに失敗",
			zap.String("op", op),
			zap.String("path", s.path),
			zap.Error(err),
		)
		return persistence.Unavailable(op, err)
	}

	// ここから先は永続化済み。呼び出し元がキャンセルしても巻き戻さない
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	return nil
}
