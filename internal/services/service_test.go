package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/brightclass/assessment-delivery/internal/cache"
	"github.com/brightclass/assessment-delivery/internal/events"
	"github.com/brightclass/assessment-delivery/internal/models"
	"github.com/brightclass/assessment-delivery/internal/repositories"
	"github.com/brightclass/assessment-delivery/internal/repositories/postgres"
	"github.com/brightclass/assessment-delivery/internal/utils"
)

var testDBCounter atomic.Int64

// newTestRepo opens a fresh in-memory database with the schema migrated. The
// repository implementation is the production one; only the driver differs.
func newTestRepo(t *testing.T) repositories.Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:services%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Assessment{},
		&models.Question{},
		&models.AssessmentAttempt{},
		&models.StudentAnswer{},
	))

	return postgres.NewRepository(db)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPublisher() *events.MockEventPublisher {
	return events.NewMockEventPublisher(newTestLogger())
}

func newTestValidator() *utils.Validator {
	return utils.NewValidator()
}

// seedActiveAssessment stores a three-question assessment in Active status:
// multiple choice (3 pts), true/false (3 pts) and a fuzzy short answer (4 pts).
func seedActiveAssessment(t *testing.T, repo repositories.Repository) *models.Assessment {
	t.Helper()

	threshold := 0.8
	assessment := &models.Assessment{
		Title:     "Science Basics",
		Subject:   "Science",
		Grade:     "5",
		Duration:  20,
		Status:    models.StatusActive,
		CreatedBy: "teacher-1",
		Version:   1,
		Questions: []models.Question{
			{
				Type:          models.MultipleChoice,
				Order:         0,
				Text:          "What is the capital of France?",
				Options:       datatypes.JSON([]byte(`["Paris","London","Berlin","Madrid"]`)),
				CorrectAnswer: "Paris",
				Points:        3,
			},
			{
				Type:          models.TrueFalse,
				Order:         1,
				Text:          "Water boils at 100 degrees Celsius.",
				CorrectAnswer: "true",
				Points:        3,
			},
			{
				Type:                models.ShortAnswer,
				Order:               2,
				Text:                "Name the largest land animal.",
				CorrectAnswer:       "Elephant",
				Points:              4,
				FuzzyMatching:       true,
				SimilarityThreshold: &threshold,
			},
		},
	}
	require.NoError(t, repo.Assessment().Create(context.Background(), assessment))
	assessment.ComputeTotals()
	return assessment
}

func newTestAttemptService(t *testing.T) (AttemptService, repositories.Repository, *events.MockEventPublisher) {
	t.Helper()
	repo := newTestRepo(t)
	publisher := newTestPublisher()
	svc := NewAttemptService(repo, publisher, newTestLogger(), newTestValidator())
	return svc, repo, publisher
}

// memoryCache is a map-backed CacheService; DeletePattern supports the
// trailing-asterisk patterns the services use.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memoryCache) contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
