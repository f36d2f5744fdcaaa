// Package mongostore implements messaging.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/smsgate/svc/messaging"
)

const (
	MessagesCollection = "sms_messages"
	OptOutsCollection  = "sms_opt_outs"
)

type messageDoc struct {
	ID                string    `bson:"_id"`
	Direction         string    `bson:"direction"`
	ConversationPhone string    `bson:"conversation_phone"`
	From              string    `bson:"from"`
	To                string    `bson:"to"`
	Body              string    `bson:"body"`
	ProviderMessageID string    `bson:"provider_message_id,omitempty"` // absent keeps the sparse index happy
	Segments          int       `bson:"segments"`
	Status            string    `bson:"status"`
	ErrorDescription  *string   `bson:"error_description"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

type optOutDoc struct {
	PhoneNumber string     `bson:"_id"`
	OptedOutAt  *time.Time `bson:"opted_out_at,omitempty"`
	OptedInAt   *time.Time `bson:"opted_in_at,omitempty"`
}

// Store is a MongoDB-backed messaging.Store.
type Store struct {
	messages *mongo.Collection
	optOuts  *mongo.Collection
}

var _ messaging.Store = (*Store)(nil)

// New creates a store in db. Call EnsureIndexes once before serving.
func New(db *mongo.Database) *Store {
	return &Store{
		messages: db.Collection(MessagesCollection),
		optOuts:  db.Collection(OptOutsCollection),
	}
}

// EnsureIndexes creates the provider id and conversation indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider_message_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "conversation_phone", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

func (s *Store) SaveMessage(ctx context.Context, msg *messaging.Message) error {
	_, err := s.messages.InsertOne(ctx, toDoc(msg))
	if mongo.IsDuplicateKeyError(err) {
		return messaging.ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) FindMessageByProviderID(ctx context.Context, providerID string) (*messaging.Message, error) {
	if providerID == "" {
		return nil, messaging.ErrMessageNotFound
	}

	var doc messageDoc
	err := s.messages.FindOne(ctx, bson.M{"provider_message_id": providerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, messaging.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}

	msg, err := fromDoc(doc)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Store) UpdateMessageStatus(ctx context.Context, providerID string, status messaging.DeliveryStatus, errorDescription *string, at time.Time) error {
	set := bson.M{
		"status":     string(status),
		"updated_at": at,
	}
	if errorDescription != nil {
		set["error_description"] = *errorDescription
	}

	res, err := s.messages.UpdateOne(ctx,
		bson.M{"provider_message_id": providerID},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	if res.MatchedCount == 0 {
		return messaging.ErrMessageNotFound
	}
	return nil
}

func (s *Store) RecordOptOut(ctx context.Context, phone string, at time.Time) error {
	return s.upsertConsent(ctx, phone, "opted_out_at", at)
}

func (s *Store) RecordOptIn(ctx context.Context, phone string, at time.Time) error {
	return s.upsertConsent(ctx, phone, "opted_in_at", at)
}

func (s *Store) upsertConsent(ctx context.Context, phone, field string, at time.Time) error {
	_, err := s.optOuts.UpdateOne(ctx,
		bson.M{"_id": phone},
		bson.M{"$max": bson.M{field: at}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", field, err)
	}
	return nil
}

func (s *Store) GetOptOut(ctx context.Context, phone string) (*messaging.OptOutRecord, error) {
	var doc optOutDoc
	err := s.optOuts.FindOne(ctx, bson.M{"_id": phone}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, messaging.ErrOptOutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opt-out: %w", err)
	}
	return &messaging.OptOutRecord{
		PhoneNumber: doc.PhoneNumber,
		OptedOutAt:  doc.OptedOutAt,
		OptedInAt:   doc.OptedInAt,
	}, nil
}

func (s *Store) ListConversation(ctx context.Context, phone string, limit int) ([]messaging.Message, error) {
	cur, err := s.messages.Find(ctx,
		bson.M{"conversation_phone": phone},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}

	thread := make([]messaging.Message, 0, len(docs))
	for _, doc := range slices.Backward(docs) {
		msg, err := fromDoc(doc)
		if err != nil {
			return nil, err
		}
		thread = append(thread, msg)
	}
	return thread, nil
}

func toDoc(m *messaging.Message) messageDoc {
	return messageDoc{
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

func fromDoc(d messageDoc) (messaging.Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return messaging.Message{}, fmt.Errorf("decode message id %q: %w", d.ID, err)
	}
	return messaging.Message{
		ID:                id,
		Direction:         messaging.Direction(d.Direction),
		ConversationPhone: d.ConversationPhone,
		From:              d.From,
		To:                d.To,
		Body:              d.Body,
		ProviderMessageID: d.ProviderMessageID,
		Segments:          d.Segments,
		Status:            messaging.DeliveryStatus(d.Status),
		ErrorDescription:  d.ErrorDescription,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}
