// Package mirror はデバイスローカルのキー・バリューストア（Local Mirror）を提供する。
// 1日分レコード全体を1つの文書として1キーに保存し、通知スケジュールやセッションも別キーで保持する。
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

// ストアのキー。既存デバイスのデータを引き継ぐため値は変更しない。
const (
	DataKey     = "selfDevelopmentData"
	SettingsKey = "pushMyself_notifications"
	ScheduleKey = "pushMyself_schedule"
	SessionKey  = "pushMyself_session"
	UnsyncedKey = "pushMyself_unsynced"

	backupKeyPrefix = "selfDevelopmentData_corrupt_"
)

// Store はLocal Mirrorの最小インターフェース。
type Store interface {
	// Get はキーの値を返す。存在しない場合はfalseを返す。
	Get(key string) ([]byte, bool, error)
	// Put はキーに値を書き込む。
	Put(key string, value []byte) error
	// Delete はキーを削除する。存在しなくてもエラーにしない。
	Delete(key string) error
}

// Mirror はdiskvを使用したStore実装。
type Mirror struct {
	d *diskv.Diskv
}

// New はdirをルートとするMirrorを生成する。
func New(dir string) *Mirror {
	return &Mirror{d: diskv.New(diskv.Options{
		BasePath:     dir,
		TempDir:      filepath.Join(dir, ".tmp"),
		CacheSizeMax: 1024 * 1024, // 1MB
	})}
}

// Get はキーの値を返す。存在しない場合はfalseを返す。
func (m *Mirror) Get(key string) ([]byte, bool, error) {
	val, err := m.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read mirror key %s: %w", key, err)
	}
	return val, true, nil
}

// Put はキーに値を書き込む。TempDir経由でリネームするため書き込み途中の値は読まれない。
func (m *Mirror) Put(key string, value []byte) error {
	if err := m.d.Write(key, value); err != nil {
		return fmt.Errorf("failed to write mirror key %s: %w", key, err)
	}
	return nil
}

// Delete はキーを削除する。
func (m *Mirror) Delete(key string) error {
	if !m.d.Has(key) {
		return nil
	}
	if err := m.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to erase mirror key %s: %w", key, err)
	}
	return nil
}

// GetJSON はキーの値をvにデコードする。存在しない場合はfalseを返す。
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode mirror key %s: %w", key, err)
	}
	return true, nil
}

// PutJSON はvをJSONにしてキーに書き込む。
func PutJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode mirror key %s: %w", key, err)
	}
	return s.Put(key, raw)
}

// Backup は読めなかった文書を退避キーに保存し、そのキーを返す。
func Backup(s Store, raw []byte, now time.Time) (string, error) {
	key := backupKeyPrefix + strconv.FormatInt(now.UnixMilli(), 10)
	if err := s.Put(key, raw); err != nil {
		return "", err
	}
	return key, nil
}

// compile-time interface check
var _ Store = (*Mirror)(nil)
