package mongo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifyhub/pkg/mongo"
)

func TestConnect_EmptyURL(t *testing.T) {
	t.Parallel()

	client, err := mongo.Connect(context.Background(), mongo.Config{})
	assert.Nil(t, client)
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
}

func TestConnectDatabase_PropagatesError(t *testing.T) {
	t.Parallel()

	db, err := mongo.ConnectDatabase(context.Background(), mongo.Config{Database: "x"})
	assert.Nil(t, db)
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
}
