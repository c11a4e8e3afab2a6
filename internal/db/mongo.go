package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/query"
)

// OpenMongo connects to uri and checks the primary is reachable.
func OpenMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

type MongoCollection[T Document] struct {
	coll *mongo.Collection
}

func NewMongoCollection[T Document](database *mongo.Database, name string) *MongoCollection[T] {
	return &MongoCollection[T]{coll: database.Collection(name)}
}

var _ Collection[Document] = (*MongoCollection[Document])(nil)

func (c *MongoCollection[T]) Find(ctx context.Context, filter query.Filter) ([]T, error) {
	predicate, err := mongoFilter(filter)
	if err != nil {
		return nil, err
	}
	cursor, err := c.coll.Find(ctx, predicate)
	if err != nil {
		return nil, apperr.Upstream("find in "+c.coll.Name(), err)
	}
	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Upstream("read "+c.coll.Name(), err)
	}
	return docs, nil
}

func (c *MongoCollection[T]) FindOne(ctx context.Context, filter query.Filter) (*T, error) {
	predicate, err := mongoFilter(filter)
	if err != nil {
		return nil, err
	}
	var doc T
	err = c.coll.FindOne(ctx, predicate).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Upstream("find one in "+c.coll.Name(), err)
	}
	return &doc, nil
}

func (c *MongoCollection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return c.FindOne(ctx, query.ByID(id))
}

func (c *MongoCollection[T]) InsertOne(ctx context.Context, doc T) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return apperr.Upstream("insert into "+c.coll.Name(), err)
	}
	return nil
}

func (c *MongoCollection[T]) UpdateByID(ctx context.Context, id string, doc T) error {
	res, err := c.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc)
	if err != nil {
		return apperr.Upstream("update "+c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("%s %s", c.coll.Name(), id)
	}
	return nil
}

func (c *MongoCollection[T]) DeleteMany(ctx context.Context, filter query.Filter) (int64, error) {
	predicate, err := mongoFilter(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteMany(ctx, predicate)
	if err != nil {
		return 0, apperr.Upstream("delete from "+c.coll.Name(), err)
	}
	return res.DeletedCount, nil
}

// mongoFilter translates a filter into an equality document. The id field
// lives under _id.
func mongoFilter(filter query.Filter) (bson.D, error) {
	if err := checkFields(filter); err != nil {
		return nil, err
	}
	predicate := bson.D{}
	for _, field := range filter.Fields() {
		name := field.Name
		if name == query.IDField {
			name = "_id"
		}
		predicate = append(predicate, bson.E{Key: name, Value: field.Value})
	}
	return predicate, nil
}
