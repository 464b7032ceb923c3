package game

const (
	UpdateRateHz            = 10.0 // per-client WS state pushes
	MaxPendingNotifications = 64   // notifications kept per session for late readers
)
