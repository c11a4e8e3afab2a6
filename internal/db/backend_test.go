package db

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/toobased/socials-backend/internal/model"
	"github.com/toobased/socials-backend/internal/query"
)

func TestMongoFilterMapsIDField(t *testing.T) {
	predicate, err := mongoFilter(query.Where(
		query.Field{Name: query.IDField, Value: "abc"},
		query.Field{Name: "platform", Value: "vk"},
	))
	if err != nil {
		t.Fatalf("mongo filter: %v", err)
	}
	want := bson.D{{Key: "_id", Value: "abc"}, {Key: "platform", Value: "vk"}}
	if len(predicate) != len(want) {
		t.Fatalf("expected %v, got %v", want, predicate)
	}
	for i := range want {
		if predicate[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, predicate)
		}
	}

	all, err := mongoFilter(query.All())
	if err != nil || len(all) != 0 {
		t.Fatalf("expected empty predicate for All, got %v (%v)", all, err)
	}
}

func TestPostgresWhereUsesContainment(t *testing.T) {
	where, args, err := postgresWhere(query.All())
	if err != nil || where != "" || args != nil {
		t.Fatalf("expected no clause for All, got %q %v %v", where, args, err)
	}

	where, args, err = postgresWhere(query.Where(
		query.Field{Name: "platform", Value: "vk"},
		query.Field{Name: "requires_target", Value: true},
	))
	if err != nil {
		t.Fatalf("postgres where: %v", err)
	}
	if where != " WHERE doc @> $1::jsonb" || len(args) != 1 {
		t.Fatalf("unexpected clause %q %v", where, args)
	}
	var probe map[string]any
	if err := json.Unmarshal([]byte(args[0].(string)), &probe); err != nil {
		t.Fatalf("decode probe: %v", err)
	}
	if probe["platform"] != "vk" || probe["requires_target"] != true {
		t.Fatalf("unexpected probe %v", probe)
	}
}

func TestSQLiteWhereUsesIDColumn(t *testing.T) {
	where, args, err := sqliteWhere(query.ByID("abc"))
	if err != nil {
		t.Fatalf("sqlite where: %v", err)
	}
	if where != " WHERE id = ?" || len(args) != 1 || args[0] != "abc" {
		t.Fatalf("unexpected clause %q %v", where, args)
	}
}

func TestMongoStoreIntegration(t *testing.T) {
	uri := os.Getenv("SOCIALS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SOCIALS_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := OpenMongo(ctx, uri)
	if err != nil {
		t.Fatalf("open mongo: %v", err)
	}
	database := "socials_test_" + query.NewID()[:8]
	defer client.Database(database).Drop(ctx)

	exerciseStore(t, NewMongoStore(client, database))
}

func TestPostgresStoreIntegration(t *testing.T) {
	url := os.Getenv("SOCIALS_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("SOCIALS_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	pool, err := OpenPostgres(ctx, url)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	for _, table := range []string{BotsCollection, TasksCollection, SocialSourcesCollection, TaskTypesCollection} {
		if _, err := pool.Exec(ctx, "TRUNCATE "+table); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}

	exerciseStore(t, NewPostgresStore(pool))
}

func exerciseStore(t *testing.T, store *Store) {
	t.Helper()
	defer store.Close()
	ctx := context.Background()

	bot := testBot(model.PlatformVK, "integration")
	if err := store.Bots.InsertOne(ctx, bot); err != nil {
		t.Fatalf("insert: %v", err)
	}
	found, err := store.Bots.FindOne(ctx, query.Where(query.Field{Name: "username", Value: "integration"}))
	if err != nil || found == nil || found.ID != bot.ID {
		t.Fatalf("find one: %+v %v", found, err)
	}
	bot.DisplayName = "changed"
	if err := store.Bots.UpdateByID(ctx, bot.ID, bot); err != nil {
		t.Fatalf("update: %v", err)
	}
	deleted, err := store.Bots.DeleteMany(ctx, query.ByID(bot.ID))
	if err != nil || deleted != 1 {
		t.Fatalf("delete: %d %v", deleted, err)
	}
	if err := store.SeedTaskTypes(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
}
