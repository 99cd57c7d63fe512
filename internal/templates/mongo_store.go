package templates

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const DefaultCollection = "templates"

type MongoStore struct {
	coll *mongo.Collection
}

type MongoOption func(*mongoOptions)

type mongoOptions struct {
	collection string
}

func WithCollection(name string) MongoOption {
	return func(o *mongoOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

func NewMongoStore(db *mongo.Database, opts ...MongoOption) *MongoStore {
	o := mongoOptions{collection: DefaultCollection}
	for _, opt := range opts {
		opt(&o)
	}
	return &MongoStore{coll: db.Collection(o.collection)}
}

// EnsureIndexes creates the unique (code, version) index used by Get.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}, {Key: "version", Value: -1}},
		Options: options.Index().SetUnique(true).SetName("code_version"),
	})
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, code string) (Template, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})

	var t Template
	err := s.coll.FindOne(ctx, bson.D{{Key: "code", Value: code}}, opts).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, code)
	}
	if err != nil {
		return Template{}, errors.Join(ErrUnavailable, err)
	}
	return t, nil
}

// Put inserts or replaces one (code, version) document.
func (s *MongoStore) Put(ctx context.Context, t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	filter := bson.D{{Key: "code", Value: t.Code}, {Key: "version", Value: t.Version}}
	if _, err := s.coll.ReplaceOne(ctx, filter, t, options.Replace().SetUpsert(true)); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
