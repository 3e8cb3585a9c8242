package persistence

import (
	"fmt"

	"github.com/bluebeam/bluebeam/internal/errs"
)

// AddMessage appends msg to its conversation's history. Messages are
// append-only: once written, a row is only ever updated through
// UpdateMessageStatus, never replaced.
func (s *Store) AddMessage(msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = nowUTC()
	}
	if msg.Status == "" {
		msg.Status = MessageSent
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return errs.Database(errs.CodeQueryFailed, fmt.Errorf("add message %s: %w", msg.ID, err))
	}
	return nil
}

// GetMessages returns every message in conversationID, oldest first.
func (s *Store) GetMessages(conversationID string) ([]Message, error) {
	var messages []Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Find(&messages).Error
	if err != nil {
		return nil, errs.Database(errs.CodeQueryFailed, fmt.Errorf("list messages %s: %w", conversationID, err))
	}
	return messages, nil
}

// UpdateMessageStatus advances id's status. The update is rejected
// with CodeInvalidArgument if next would move status backwards, since
// status is monotonic (Sent < Delivered < Read).
func (s *Store) UpdateMessageStatus(id string, next MessageStatus) error {
	var current Message
	if err := s.db.Where("id = ?", id).First(&current).Error; err != nil {
		return errs.Database(errs.CodeNotFound, fmt.Errorf("get message %s: %w", id, err))
	}
	if next.rank() < current.Status.rank() {
		return errs.New(errs.CodeInvalidArgument, fmt.Errorf("message %s: status %q cannot precede %q", id, next, current.Status))
	}
	if err := s.db.Model(&Message{}).Where("id = ?", id).Update("status", next).Error; err != nil {
		return errs.Database(errs.CodeQueryFailed, fmt.Errorf("update message status %s: %w", id, err))
	}
	return nil
}
