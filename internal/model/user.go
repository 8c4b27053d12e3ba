package model

import "time"

// User はネットワークストア上のデータ所有者を表す。
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session はネットワークストア上のログインセッションを表す。
// UserID がデータの所有者（owner_id）になる。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Connectivity はネットワークストアへの到達性と認証状態を表す。
type Connectivity struct {
	Reachable     bool   `json:"reachable"`
	Authenticated bool   `json:"authenticated"`
	OwnerID       string `json:"owner_id,omitempty"`
}

// Online は到達可能かつ認証済みかを返す。
func (c Connectivity) Online() bool {
	return c.Reachable && c.Authenticated && c.OwnerID != ""
}
