package templates_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/templates"
	"github.com/dmitrymomot/notifyhub/pkg/mongo"
)

// Runs against a disposable server named by NOTIFYHUB_TEST_MONGO_URL.
func TestMongoStore(t *testing.T) {
	url := os.Getenv("NOTIFYHUB_TEST_MONGO_URL")
	if url == "" || testing.Short() {
		t.Skip("NOTIFYHUB_TEST_MONGO_URL not set")
	}

	ctx := context.Background()
	db, err := mongo.ConnectDatabase(ctx, mongo.Config{ConnectionURL: url, Database: "notifyhub_test"})
	require.NoError(t, err)

	coll := "templates_" + uuid.NewString()[:8]
	store := templates.NewMongoStore(db, templates.WithCollection(coll))
	t.Cleanup(func() { _ = db.Collection(coll).Drop(context.Background()) })
	require.NoError(t, store.EnsureIndexes(ctx))

	v1 := welcome
	v2 := welcome
	v2.Version = 2
	v2.Subject = "Hey {{name}}"
	require.NoError(t, store.Put(ctx, v1))
	require.NoError(t, store.Put(ctx, v2))

	got, err := store.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, v2, got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, templates.ErrTemplateNotFound)
}
