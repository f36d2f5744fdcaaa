package mongo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/smsgate/pkg/mongo"
)

func TestConnect_EmptyURL(t *testing.T) {
	t.Parallel()

	_, err := mongo.Connect(context.Background(), mongo.Config{}, nil)
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
}

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := mongo.Connect(context.Background(), mongo.Config{ConnectionURL: "http://not-mongo", ConnectAttempts: 1}, nil)
	assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
}
