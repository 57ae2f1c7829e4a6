package spotify

import (
	"encoding/json"
	"fmt"

	"github.com/subsense/subsense/common/settings"
)

// PendingIntent is a buffered subscription-creation request captured before
// the browser redirect and applied after linking completes.
type PendingIntent struct {
	AppName         string  `json:"app_name"`
	Cost            float64 `json:"cost"`
	BillingCycle    string  `json:"billing_cycle"`
	StartDate       string  `json:"start_date"`
	NextBillingDate string  `json:"next_billing_date"`
}

// IntentStore persists at most one PendingIntent under a fixed key in the
// settings store. Writing a new intent overwrites any existing one.
type IntentStore struct {
	store *settings.Store
}

func NewIntentStore(store *settings.Store) *IntentStore {
	return &IntentStore{store: store}
}

// Save serializes the intent, replacing whatever was stored before.
func (s *IntentStore) Save(intent PendingIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshaling pending intent: %w", err)
	}
	return s.store.Set(settings.PendingSubscriptionKey, string(data))
}

// Load returns the stored intent, or nil when none exists.
func (s *IntentStore) Load() (*PendingIntent, error) {
	raw := s.store.GetString(settings.PendingSubscriptionKey)
	if raw == "" {
		return nil, nil
	}
	var intent PendingIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, fmt.Errorf("unmarshaling pending intent: %w", err)
	}
	return &intent, nil
}

// Clear removes the stored intent, if any.
func (s *IntentStore) Clear() error {
	return s.store.Delete(settings.PendingSubscriptionKey)
}
