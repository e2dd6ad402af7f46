package cron

import (
	"encoding/json"
	"fmt"

	"hostd/internal/store"
)

// HistoryKind labels one kind of history event this package records,
// grounded on original_source/server/host/hosthistory.cpp's per-game event
// log (a feature spec.md's distillation dropped — see DESIGN.md).
type HistoryKind string

const (
	HistoryScheduleChange HistoryKind = "scheduleChange"
	HistoryInactivityKick HistoryKind = "inactivityKick"
	HistoryRankChange     HistoryKind = "rankChange"
)

// HistoryItem is one compact entry appended to a game's history key
// family (spec.md §6: `game:<id>:history`).
type HistoryItem struct {
	Kind HistoryKind `json:"kind"`
	Time int64       `json:"time"`
	Turn int         `json:"turn"`
	Detail string    `json:"detail"`
}

// RecordHistory appends one history item for gameID, exposed read-only
// through the HIST command family named in spec.md §6.
func RecordHistory(s store.Store, gameID string, item HistoryItem) error {
	encoded, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("cron: encode history item: %w", err)
	}
	return s.AppendList("game", gameID, "history", encoded)
}

// ReadHistory decodes every history item recorded for gameID, in
// insertion order.
func ReadHistory(s store.Store, gameID string) ([]HistoryItem, error) {
	raw, err := s.GetList("game", gameID, "history")
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(raw))
	for _, entry := range raw {
		var item HistoryItem
		if err := json.Unmarshal(entry, &item); err != nil {
			return nil, fmt.Errorf("cron: decode history item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
