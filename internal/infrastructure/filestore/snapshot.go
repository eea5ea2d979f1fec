package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/persistence"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
)

// snapshot はファイルに保存されるストア全体
type snapshot struct {
	Concerts []concertRecord `json:"concerts"`
	Tickets  []ticketRecord  `json:"tickets"`
}

type concertRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Venue     string    `json:"venue"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

func (r concertRecord) toEntity() *concert.Concert {
	return &concert.Concert{
		ID: r.ID, Name: r.Name, Venue: r.Venue, Date: r.Date, CreatedAt: r.CreatedAt,
	}
}

type ticketRecord struct {
	Code        string     `json:"code"`
	HolderName  string     `json:"name"`
	ConcertID   string     `json:"concert"`
	CheckedIn   bool       `json:"checked"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
}

func (r ticketRecord) toEntity() *ticket.Ticket {
	t := &ticket.Ticket{
		Code: r.Code, HolderName: r.HolderName, ConcertID: r.ConcertID,
		CheckedIn: r.CheckedIn, IssuedAt: r.IssuedAt,
	}
	if r.CheckedInAt != nil {
		at := *r.CheckedInAt
		t.CheckedInAt = &at
	}
	return t
}

// state は公開後に変更されないメモリ上のストア内容
// 書き込みは clone したものを変更し、永続化後に差し替える
type state struct {
	concerts     []concertRecord
	concertIndex map[string]int
	tickets      []ticketRecord
	ticketIndex  map[string]int
}

func newState() *state {
	return &state{
		concertIndex: make(map[string]int),
		ticketIndex:  make(map[string]int),
	}
}

func (s *state) clone() *state {
	next := &state{
		concerts:     make([]concertRecord, len(s.concerts), len(s.concerts)+1),
		concertIndex: make(map[string]int, len(s.concertIndex)+1),
		tickets:      make([]ticketRecord, len(s.tickets), len(s.tickets)+1),
		ticketIndex:  make(map[string]int, len(s.ticketIndex)+1),
	}
	copy(next.concerts, s.concerts)
	copy(next.tickets, s.tickets)
	for k, v := range s.concertIndex {
		next.concertIndex[k] = v
	}
	for k, v := range s.ticketIndex {
		next.ticketIndex[k] = v
	}
	return next
}

func (s *state) addConcert(r concertRecord) {
	s.concertIndex[r.ID] = len(s.concerts)
	s.concerts = append(s.concerts, r)
}

func (s *state) addTicket(r ticketRecord) {
	s.ticketIndex[r.Code] = len(s.tickets)
	s.tickets = append(s.tickets, r)
}

func (s *state) snapshot() snapshot {
	snap := snapshot{
		Concerts: s.concerts,
		Tickets:  s.tickets,
	}
	if snap.Concerts == nil {
		snap.Concerts = []concertRecord{}
	}
	if snap.Tickets == nil {
		snap.Tickets = []ticketRecord{}
	}
	return snap
}

// stateFromSnapshot はスナップショットを検証してメモリ上の状態を構築する
// ID/コードの重複や存在しないコンサートへの参照があれば破損として扱う
func stateFromSnapshot(snap snapshot) (*state, error) {
	st := newState()
	for i, c := range snap.Concerts {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: concerts[%d] のIDが空です", persistence.ErrCorruptSnapshot, i)
		}
		if _, dup := st.concertIndex[c.ID]; dup {
			return nil, fmt.Errorf("%w: コンサートIDが重複しています: %s", persistence.ErrCorruptSnapshot, c.ID)
		}
		st.addConcert(c)
	}
	for i, t := range snap.Tickets {
		if t.Code == "" {
			return nil, fmt.Errorf("%w: tickets[%d] のコードが空です", persistence.ErrCorruptSnapshot, i)
		}
		if _, dup := st.ticketIndex[t.Code]; dup {
			return nil, fmt.Errorf("%w: チケットコードが重複しています: %s", persistence.ErrCorruptSnapshot, t.Code)
		}
		if _, ok := st.concertIndex[t.ConcertID]; !ok {
			return nil, fmt.Errorf("%w: チケット %s が存在しないコンサート %q を参照しています",
				persistence.ErrCorruptSnapshot, t.Code, t.ConcertID)
		}
		st.addTicket(t)
	}
	return st, nil
}

// readSnapshot はスナップショットファイルを読み込む
// ファイルが存在しない場合は os.ErrNotExist をラップして返す
func readSnapshot(path string) (snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return snapshot{}, fmt.Errorf("%w: %s が空です", persistence.ErrCorruptSnapshot, path)
	}

	var raw struct {
		Concerts json.RawMessage `json:"concerts"`
		Tickets  json.RawMessage `json:"tickets"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return snapshot{}, fmt.Errorf("%w: %s の解析に失敗: %v", persistence.ErrCorruptSnapshot, path, err)
	}
	if dec.More() {
		return snapshot{}, fmt.Errorf("%w: %s に余分なデータがあります", persistence.ErrCorruptSnapshot, path)
	}

	var snap snapshot
	if err := decodeArray(raw.Concerts, &snap.Concerts); err != nil {
		return snapshot{}, fmt.Errorf("%w: %s の concerts が不正です: %v", persistence.ErrCorruptSnapshot, path, err)
	}
	if err := decodeArray(raw.Tickets, &snap.Tickets); err != nil {
		return snapshot{}, fmt.Errorf("%w: %s の tickets が不正です: %v", persistence.ErrCorruptSnapshot, path, err)
	}
	return snap, nil
}

// decodeArray は JSON 配列だけを受け付ける（キー欠落と null は不正）
func decodeArray(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return errors.New("キーがありません")
	}
	if trimmed[0] != '[' {
		return errors.New("配列ではありません")
	}
	return json.Unmarshal(trimmed, v)
}

// writeSnapshotFile はスナップショットを原子的に書き込む
// 同じディレクトリの一時ファイルへ書き込み、fsync してから rename する
// 読み手が書きかけのファイルを見ることはない
func writeSnapshotFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("一時ファイルへの書き込みに失敗: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("一時ファイルの同期に失敗: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("スナップショットの置き換えに失敗: %w", err)
	}
	success = true

	// rename を確定させるためディレクトリも同期する
	if err := syncDir(dir); err != nil {
		return fmt.Errorf("ディレクトリの同期に失敗: %w", err)
	}
	return nil
}

// syncDir はディレクトリエントリを fsync する（テストで差し替える）
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

func encodeSnapshot(snap snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("スナップショットのエンコードに失敗: %w", err)
	}
	return append(data, '\n'), nil
}

// removeStaleTempFiles はクラッシュで残った一時ファイルを削除する
func removeStaleTempFiles(path string) error {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), filepath.Base(path)+".*.tmp"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
