package store

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/sweetpotato0/bizplan/config"
	"github.com/sweetpotato0/bizplan/contrib/session/inmemory"
	errorskg "github.com/sweetpotato0/bizplan/errors"
	"github.com/sweetpotato0/bizplan/interview"
	"github.com/sweetpotato0/bizplan/prompt"
	"github.com/sweetpotato0/bizplan/session"
)

func sampleRecord(id string) *session.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &session.Record{
		ID:        id,
		Sections:  []prompt.Section{{Name: "Pitch", Prompt: "What is your pitch?"}},
		Responses: map[string]string{"Pitch": "We sell widgets.", "Final Plan": "PLAN"},
		History:   map[string][]string{"Pitch": {"Q: What is your pitch?\nA: We sell widgets."}},
		Current:   1,
		Phase:     interview.PhaseTerminated,
		Outcome:   interview.OutcomeCompiled,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// exerciseStore runs the shared contract against a live backend.
func exerciseStore(t *testing.T, s session.Store) {
	t.Helper()
	ctx := context.Background()

	rec := sampleRecord("test-session-1")
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Responses["Pitch"] != "We sell widgets." {
		t.Errorf("Unexpected response %q", got.Responses["Pitch"])
	}
	if got.Outcome != interview.OutcomeCompiled {
		t.Errorf("Expected outcome compiled, got %q", got.Outcome)
	}
	if len(got.Sections) != 1 || got.Sections[0].Name != "Pitch" {
		t.Errorf("Unexpected sections %+v", got.Sections)
	}
	if len(got.History["Pitch"]) != 1 {
		t.Errorf("Unexpected history %+v", got.History)
	}

	// upsert keeps one row
	rec.Responses["Pitch"] = "We sell better widgets."
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	got, _ = s.Load(ctx, rec.ID)
	if got.Responses["Pitch"] != "We sell better widgets." {
		t.Errorf("Expected updated response, got %q", got.Responses["Pitch"])
	}

	ok, err := s.Exists(ctx, rec.ID)
	if err != nil || !ok {
		t.Errorf("Expected record to exist, got %v %v", ok, err)
	}
	count, err := s.Count(ctx)
	if err != nil || count < 1 {
		t.Errorf("Expected at least one record, got %d %v", count, err)
	}
	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == rec.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("List did not include %s: %v", rec.ID, ids)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load(ctx, rec.ID); !errors.Is(err, errorskg.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Save(ctx, nil); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil record, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis store tests")
	}

	s := NewRedisStore(&RedisConfig{Addr: addr, Prefix: "bizplan:test:", TTL: time.Minute})
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Skipf("Failed to connect to Redis: %v", err)
	}
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		t.Skip("POSTGRES_HOST not set, skipping PostgreSQL store tests")
	}

	cfg := DefaultPostgresConfig()
	cfg.Host = host
	if port, err := strconv.Atoi(os.Getenv("POSTGRES_PORT")); err == nil {
		cfg.Port = port
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		cfg.User = user
	}
	cfg.Password = os.Getenv("POSTGRES_PASSWORD")
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		cfg.DBName = db
	}

	s, err := NewPostgresStore(context.Background(), cfg)
	if err != nil {
		t.Skipf("Failed to connect to PostgreSQL: %v", err)
	}
	defer s.Close()
	_ = s.Clear(context.Background())
	exerciseStore(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping MongoDB store tests")
	}

	s, err := NewMongoStore(context.Background(), &MongoConfig{
		URI:        uri,
		Database:   "bizplan_test",
		Collection: "interviews_test",
	})
	if err != nil {
		t.Skipf("Failed to connect to MongoDB: %v", err)
	}
	defer s.Close(context.Background())
	_ = s.Clear(context.Background())
	exerciseStore(t, s)
}

func TestMongoRecordConversion(t *testing.T) {
	rec := sampleRecord("conv")
	back := toMongo(rec).toRecord()

	if back.ID != rec.ID || back.Current != rec.Current {
		t.Errorf("Identity fields lost: %+v", back)
	}
	if back.Phase != rec.Phase || back.Outcome != rec.Outcome {
		t.Errorf("Phase or outcome lost: %s %s", back.Phase, back.Outcome)
	}
	if back.Sections[0] != rec.Sections[0] {
		t.Errorf("Section lost: %+v", back.Sections[0])
	}
	if back.Responses["Final Plan"] != "PLAN" {
		t.Errorf("Responses lost: %+v", back.Responses)
	}
}

func TestOpenMemory(t *testing.T) {
	s, closeFn, err := Open(context.Background(), config.Store{Driver: config.StoreMemory})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer closeFn()

	if _, ok := s.(*inmemory.InMemoryStore); !ok {
		t.Fatalf("Expected in-memory store, got %T", s)
	}
	exerciseStore(t, s)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Store
	}{
		{"unknown driver", config.Store{Driver: "sqlite"}},
		{"redis without addr", config.Store{Driver: config.StoreRedis, Redis: config.Redis{Prefix: "p"}}},
		{"postgres bad port", config.Store{Driver: config.StorePostgres, Postgres: config.Postgres{
			Host: "h", Port: 0, User: "u", DBName: "d", SSLMode: "disable",
		}}},
		{"mongo without database", config.Store{Driver: config.StoreMongo, Mongo: config.Mongo{URI: "mongodb://x", Collection: "c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Open(context.Background(), tt.cfg); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
