package model

import (
	"sync"
	"time"
)

// IDSource はミリ秒時刻に基づく単調増加のIDを払い出す。
// 同一ミリ秒内の連続呼び出しでも直前の値+1を返すため重複しない。
type IDSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDSource はIDSourceを生成する。nowがnilの場合はtime.Nowを使う。
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next は max(現在時刻ms, 直前の値+1) を返す。
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe は既存のIDを記録し、以降のNextがそれより大きい値を返すようにする。
func (s *IDSource) Observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.last {
		s.last = id
	}
}
