package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/toobased/socials-backend/internal/model"
)

// Store groups the collections of every resource behind one backend.
type Store struct {
	Bots      Collection[model.Bot]
	Tasks     Collection[model.BotTask]
	Sources   Collection[model.SocialSource]
	TaskTypes Collection[model.TaskType]

	close func() error
}

// NewStore builds a store on an SQLite database opened with Open.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Bots:      NewSQLiteCollection[model.Bot](db, BotsCollection),
		Tasks:     NewSQLiteCollection[model.BotTask](db, TasksCollection),
		Sources:   NewSQLiteCollection[model.SocialSource](db, SocialSourcesCollection),
		TaskTypes: NewSQLiteCollection[model.TaskType](db, TaskTypesCollection),
		close:     db.Close,
	}
}

func NewMongoStore(client *mongo.Client, database string) *Store {
	mdb := client.Database(database)
	return &Store{
		Bots:      NewMongoCollection[model.Bot](mdb, BotsCollection),
		Tasks:     NewMongoCollection[model.BotTask](mdb, TasksCollection),
		Sources:   NewMongoCollection[model.SocialSource](mdb, SocialSourcesCollection),
		TaskTypes: NewMongoCollection[model.TaskType](mdb, TaskTypesCollection),
		close: func() error {
			return client.Disconnect(context.Background())
		},
	}
}

func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Bots:      NewPostgresCollection[model.Bot](pool, BotsCollection),
		Tasks:     NewPostgresCollection[model.BotTask](pool, TasksCollection),
		Sources:   NewPostgresCollection[model.SocialSource](pool, SocialSourcesCollection),
		TaskTypes: NewPostgresCollection[model.TaskType](pool, TaskTypesCollection),
		close: func() error {
			pool.Close()
			return nil
		},
	}
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// SeedTaskTypes writes the fixed task-type catalog, replacing stale entries.
func (s *Store) SeedTaskTypes(ctx context.Context) error {
	for _, taskType := range model.TaskTypeCatalog() {
		existing, err := s.TaskTypes.FindByID(ctx, taskType.ID)
		if err != nil {
			return fmt.Errorf("seed task type %s: %w", taskType.ID, err)
		}
		if existing == nil {
			err = s.TaskTypes.InsertOne(ctx, taskType)
		} else {
			err = s.TaskTypes.UpdateByID(ctx, taskType.ID, taskType)
		}
		if err != nil {
			return fmt.Errorf("seed task type %s: %w", taskType.ID, err)
		}
	}
	return nil
}
