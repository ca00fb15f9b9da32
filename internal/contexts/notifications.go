package contexts

import (
	"encoding/json"

	"github.com/lotas/ctxkeep/internal/types"
)

// Notify prepends a notification to the log, keeping at most
// MaxNotifications entries.
func (s *Store) Notify(message string, typ types.NotificationType) (types.Notification, error) {
	n := types.Notification{
		ID:        s.newID(),
		Message:   message,
		Type:      typ,
		Timestamp: s.now(),
	}

	list, err := s.Notifications()
	if err != nil {
		return types.Notification{}, err
	}
	list = append([]types.Notification{n}, list...)
	if len(list) > MaxNotifications {
		list = list[:MaxNotifications]
	}
	if err := s.writeNotifications(list); err != nil {
		return types.Notification{}, err
	}
	return n, nil
}

// Notifications returns the log, newest first.
func (s *Store) Notifications() ([]types.Notification, error) {
	values, err := s.kv.Get(KeyNotifications)
	if err != nil {
		return nil, storageErr("read notifications", err)
	}
	var list []types.Notification
	if data, ok := values[KeyNotifications]; ok {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, storageErr("decode notifications", err)
		}
	}
	return list, nil
}

// ClearNotifications empties the log.
func (s *Store) ClearNotifications() error {
	return s.writeNotifications([]types.Notification{})
}

func (s *Store) writeNotifications(list []types.Notification) error {
	data, err := json.Marshal(list)
	if err != nil {
		return storageErr("encode notifications", err)
	}
	if err := s.kv.Set(map[string][]byte{KeyNotifications: data}); err != nil {
		return storageErr("write notifications", err)
	}
	return nil
}

// Preferences returns the stored preferences. Missing fields keep their
// default values.
func (s *Store) Preferences() (types.Preferences, error) {
	prefs := types.DefaultPreferences()
	values, err := s.kv.Get(KeyPreferences)
	if err != nil {
		return prefs, storageErr("read preferences", err)
	}
	if data, ok := values[KeyPreferences]; ok {
		if err := json.Unmarshal(data, &prefs); err != nil {
			return types.DefaultPreferences(), storageErr("decode preferences", err)
		}
	}
	return prefs, nil
}

// SetPreferences replaces the stored preferences.
func (s *Store) SetPreferences(p types.Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return storageErr("encode preferences", err)
	}
	if err := s.kv.Set(map[string][]byte{KeyPreferences: data}); err != nil {
		return storageErr("write preferences", err)
	}
	return nil
}
