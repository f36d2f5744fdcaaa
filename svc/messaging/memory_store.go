package messaging

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu         sync.RWMutex
	messages   []*Message
	byProvider map[string]*Message
	optOuts    map[string]*OptOutRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byProvider: make(map[string]*Message),
		optOuts:    make(map[string]*OptOutRecord),
	}
}

func (s *MemoryStore) SaveMessage(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ProviderMessageID != "" {
		if _, ok := s.byProvider[msg.ProviderMessageID]; ok {
			return ErrDuplicateMessage
		}
	}

	stored := cloneMessage(msg)
	s.messages = append(s.messages, stored)
	if stored.ProviderMessageID != "" {
		s.byProvider[stored.ProviderMessageID] = stored
	}
	return nil
}

func (s *MemoryStore) FindMessageByProviderID(_ context.Context, providerID string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.byProvider[providerID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return cloneMessage(msg), nil
}

func (s *MemoryStore) UpdateMessageStatus(_ context.Context, providerID string, status DeliveryStatus, errorDescription *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byProvider[providerID]
	if !ok {
		return ErrMessageNotFound
	}
	msg.Status = status
	if errorDescription != nil {
		msg.ErrorDescription = cloneString(errorDescription)
	}
	msg.UpdatedAt = at
	return nil
}

func (s *MemoryStore) RecordOptOut(_ context.Context, phone string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(phone)
	rec.OptedOutAt = latest(rec.OptedOutAt, at)
	return nil
}

func (s *MemoryStore) RecordOptIn(_ context.Context, phone string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(phone)
	rec.OptedInAt = latest(rec.OptedInAt, at)
	return nil
}

func (s *MemoryStore) GetOptOut(_ context.Context, phone string) (*OptOutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.optOuts[phone]
	if !ok {
		return nil, ErrOptOutNotFound
	}
	out := OptOutRecord{PhoneNumber: rec.PhoneNumber}
	if rec.OptedOutAt != nil {
		t := *rec.OptedOutAt
		out.OptedOutAt = &t
	}
	if rec.OptedInAt != nil {
		t := *rec.OptedInAt
		out.OptedInAt = &t
	}
	return &out, nil
}

func (s *MemoryStore) ListConversation(_ context.Context, phone string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var thread []Message
	for _, m := range s.messages {
		if m.ConversationPhone == phone {
			thread = append(thread, *cloneMessage(m))
		}
	}
	slices.SortStableFunc(thread, func(a, b Message) int { return a.CreatedAt.Compare(b.CreatedAt) })

	if limit > 0 && len(thread) > limit {
		thread = thread[len(thread)-limit:]
	}
	return thread, nil
}

// record must be called with s.mu held.
func (s *MemoryStore) record(phone string) *OptOutRecord {
	rec, ok := s.optOuts[phone]
	if !ok {
		rec = &OptOutRecord{PhoneNumber: phone}
		s.optOuts[phone] = rec
	}
	return rec
}

func cloneMessage(m *Message) *Message {
	c := *m
	c.ErrorDescription = cloneString(m.ErrorDescription)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// latest keeps consent timestamps monotonic: an older write is ignored.
func latest(current *time.Time, at time.Time) *time.Time {
	if current != nil && !at.After(*current) {
		return current
	}
	return &at
}
