package approval

import "context"

// Notification adalah payload outbound ke dispatcher eksternal.
type Notification struct {
	Type           string
	EntityType     EntityType
	EntityID       string
	CompanyID      string
	RecipientID    string
	RecipientEmail string
	Level          int
	LevelInfo      string
	Message        string
}

// Notifier bersifat fire-and-forget: kegagalan kirim tidak boleh membatalkan
// transisi state manapun.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier dipakai di test dan saat dispatcher belum dikonfigurasi.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, n Notification) error { return nil }
