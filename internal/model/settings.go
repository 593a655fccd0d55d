package model

// QuietHours is a time-of-day window (HH:MM, 24-hour) during which no
// notifications are emitted. Start > End means the window spans midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// NotificationSettings is the user-configured notification snapshot. It is
// re-read at the start of every scheduled cycle, never cached across ticks.
type NotificationSettings struct {
	TaskReminders        bool       `json:"taskReminders"`
	TaskDueSoon          bool       `json:"taskDueSoon"`
	TaskOverdue          bool       `json:"taskOverdue"`
	TaskCompleted        bool       `json:"taskCompleted"`
	SystemUpdates        bool       `json:"systemUpdates"`
	DesktopNotifications bool       `json:"desktopNotifications"`
	PushNotifications    bool       `json:"pushNotifications"`
	QuietHours           QuietHours `json:"quietHours"`
}

// ChannelEnabled reports whether at least one delivery channel is on.
func (s NotificationSettings) ChannelEnabled() bool {
	return s.DesktopNotifications || s.PushNotifications
}
