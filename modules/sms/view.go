package sms

import (
	"time"

	"github.com/dmitrymomot/smsgate/svc/messaging"
)

type messageView struct {
	ID                string    `json:"id"`
	Direction         string    `json:"direction"`
	ConversationPhone string    `json:"conversation_phone"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	Body              string    `json:"body"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	Segments          int       `json:"segments"`
	Status            string    `json:"status"`
	ErrorDescription  *string   `json:"error_description,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newMessageView(m *messaging.Message) messageView {
	return messageView{
		ID:                m.ID.String(),
		Direction:         string(m.Direction),
		ConversationPhone: m.ConversationPhone,
		From:              m.From,
		To:                m.To,
		Body:              m.Body,
		ProviderMessageID: m.ProviderMessageID,
		Segments:          m.Segments,
		Status:            string(m.Status),
		ErrorDescription:  m.ErrorDescription,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
