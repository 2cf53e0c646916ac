package core

import "time"

// NoticeLevel grades a user-visible notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible message about something that happened in the
// background, such as a failed refresh or a delivered triage decision.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Source  string      `json:"source"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}
