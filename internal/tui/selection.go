package tui

import (
	"support-chat/internal/conversation"
	"support-chat/internal/domain"
)

func assistantIDs(msgs []domain.Message) []uint64 {
	var ids []uint64
	for _, msg := range msgs {
		if msg.Sender == domain.SenderAssistant {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}

// moveSelection steps the selection over assistant replies. The first step
// up selects the latest reply; stepping down past it returns to following
// the latest.
func (m *Model) moveSelection(delta int) {
	ids := assistantIDs(m.ctrl.Snapshot().Messages)
	if len(ids) == 0 {
		m.selectedID = 0
		return
	}

	idx := -1
	for i, id := range ids {
		if id == m.selectedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		if delta < 0 {
			m.selectedID = ids[len(ids)-1]
		} else {
			m.selectedID = 0
		}
		return
	}

	next := idx + delta
	switch {
	case next < 0:
		next = 0
	case next >= len(ids):
		m.selectedID = 0
		return
	}
	m.selectedID = ids[next]
}

// copyTarget is the selected reply, or the latest one when nothing is
// selected.
func (m Model) copyTarget(snap conversation.Snapshot) (domain.Message, bool) {
	if m.selectedID != 0 {
		for _, msg := range snap.Messages {
			if msg.ID == m.selectedID {
				return msg, true
			}
		}
	}
	return snap.LastAssistantMessage()
}
