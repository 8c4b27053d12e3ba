package model

import (
	"fmt"
	"time"
)

// 通知設定の既定値
const (
	DefaultNotificationTime    = "08:00"
	DefaultNotificationMessage = "오늘도 파이팅! 💪 새로운 하루를 시작해보세요."
	DefaultNotificationTitle   = "Push Myself - 나를 넘어라"
)

// NotificationSettings は毎日の通知設定。
type NotificationSettings struct {
	Enabled   bool   `json:"enabled"`
	TimeOfDay string `json:"morningTime"`
	Message   string `json:"message"`
}

// DefaultNotificationSettings は未設定時の通知設定を返す。
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:   false,
		TimeOfDay: DefaultNotificationTime,
		Message:   DefaultNotificationMessage,
	}
}

// WithDefaults は空のフィールドを既定値で埋めた設定を返す。
func (s NotificationSettings) WithDefaults() NotificationSettings {
	if s.TimeOfDay == "" {
		s.TimeOfDay = DefaultNotificationTime
	}
	if s.Message == "" {
		s.Message = DefaultNotificationMessage
	}
	return s
}

// ScheduleState は次回の通知予定時刻と設定を保持する。
// 永続化するのは計算済みの期限のみで、タイマーそのものは保存しない。
type ScheduleState struct {
	NextFireAtEpochMs int64                `json:"nextNotification"`
	Settings          NotificationSettings `json:"settings"`
}

// NextFireAt は次回通知時刻をtime.Timeで返す。
func (s ScheduleState) NextFireAt() time.Time {
	return time.UnixMilli(s.NextFireAtEpochMs)
}

// ParseTimeOfDay は "HH:MM" 形式の時刻を時・分に分解する。
func ParseTimeOfDay(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, NewInvalidTimeOfDayError(value)
	}
	return t.Hour(), t.Minute(), nil
}

// NextOccurrence はnowより厳密に後となる最初のtimeOfDayを返す。
// 今日の時刻が既に過ぎていれば（同時刻を含む）翌日になる。
func NextOccurrence(now time.Time, timeOfDay string) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target, nil
}

// String はログ出力用の表現を返す。
func (s ScheduleState) String() string {
	return fmt.Sprintf("next=%s enabled=%t time=%s", s.NextFireAt().Format(time.RFC3339), s.Settings.Enabled, s.Settings.TimeOfDay)
}
