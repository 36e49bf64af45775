package models

import (
	"time"

	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

// NotificationPrefs is a nested boolean mapping domain -> type -> name.
// The core performs pass-through writes; no enumeration is validated here.
type NotificationPrefs map[string]map[string]map[string]bool

// Account is an internal identity record a person authenticates as. Created
// implicitly on first signature binding; never deleted by this core.
type Account struct {
	ID            id.AccountID
	Name          string
	Email         string
	Phone         string
	Notifications NotificationPrefs
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetNotificationPreference sets the boolean at notifications.domain.type.name,
// allocating intermediate maps as needed.
func (a *Account) SetNotificationPreference(domain, kind, name string, value bool) {
	if a.Notifications == nil {
		a.Notifications = make(NotificationPrefs)
	}
	if a.Notifications[domain] == nil {
		a.Notifications[domain] = make(map[string]map[string]bool)
	}
	if a.Notifications[domain][kind] == nil {
		a.Notifications[domain][kind] = make(map[string]bool)
	}
	a.Notifications[domain][kind][name] = value
}
