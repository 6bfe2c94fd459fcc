package storage

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/models"
)

// GetScheduledMessage returns the message with the given id, or NotFound.
func (s *Store) GetScheduledMessage(id string) (*models.ScheduledMessage, error) {
	msgs, err := s.ListScheduledMessages()
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("scheduled message", id)
}

// ListScheduledMessages returns every scheduled message.
func (s *Store) ListScheduledMessages() ([]*models.ScheduledMessage, error) {
	var msgs []*models.ScheduledMessage
	if err := s.schedules.load(&msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SaveScheduledMessage creates or replaces a scheduled message by id.
func (s *Store) SaveScheduledMessage(m *models.ScheduledMessage) error {
	var msgs []*models.ScheduledMessage
	return s.schedules.withWrite(&msgs, func() error {
		now := time.Now().UTC()
		if m.ID == "" {
			m.ID = uuid.New().String()
			m.CreatedAt = now
		}
		m.UpdatedAt = now

		for i, existing := range msgs {
			if existing.ID == m.ID {
				msgs[i] = m
				return nil
			}
		}
		msgs = append(msgs, m)
		return nil
	})
}

// DeleteScheduledMessage removes a scheduled message by id.
func (s *Store) DeleteScheduledMessage(id string) error {
	var msgs []*models.ScheduledMessage
	return s.schedules.withWrite(&msgs, func() error {
		for i, m := range msgs {
			if m.ID == id {
				msgs = append(msgs[:i], msgs[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

// AppendDeliveryLog appends one delivery attempt record.
func (s *Store) AppendDeliveryLog(l *models.MessageDeliveryLog) error {
	var logs []*models.MessageDeliveryLog
	return s.delivery.withWrite(&logs, func() error {
		logs = append(logs, l)
		return nil
	})
}

// ListDeliveryLogs returns every delivery attempt record.
func (s *Store) ListDeliveryLogs() ([]*models.MessageDeliveryLog, error) {
	var logs []*models.MessageDeliveryLog
	if err := s.delivery.load(&logs); err != nil {
		return nil, err
	}
	return logs, nil
}
