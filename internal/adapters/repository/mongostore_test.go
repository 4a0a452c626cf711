package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterDoc(t *testing.T) {
	assert.Equal(t, bson.D{}, filterDoc(criteria("", "")))
	assert.Equal(t, bson.D{}, filterDoc(criteria("all", "")))
	assert.Equal(t, bson.D{{Key: "office", Value: "Pune"}}, filterDoc(criteria("Pune", "")))
	assert.Equal(t,
		bson.D{{Key: "office", Value: "Pune"}, {Key: "date", Value: "2024-01-01"}},
		filterDoc(criteria(" Pune ", "2024-01-01")),
	)
}

func TestSummaryPipeline(t *testing.T) {
	p := summaryPipeline()
	require.Len(t, p, 1)
	assert.Equal(t, "$group", p[0][0].Key)
}

// TestMongoStore runs against a live server when IGOT_TEST_MONGO_URI is set.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("IGOT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("IGOT_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coll := "reports_" + uuid.NewString()[:8]
	s, err := NewMongoStore(ctx, uri, "igot_test", coll)
	require.NoError(t, err)
	defer func() {
		_ = s.coll.Drop(context.Background())
		_ = s.Close()
	}()

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.TotalEmployees)

	require.NoError(t, s.Create(ctx, rep("2024-01-01", "X", 10, 5, 3, 1)))
	require.NoError(t, s.Create(ctx, rep("2024-01-03", "X", 12, 6, 4, 2)))
	require.NoError(t, s.Create(ctx, rep("2024-01-03", "X", 14, 7, 5, 3)))
	require.NoError(t, s.Create(ctx, rep("2024-01-02", "Y", 8, 4, 2, 1)))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, 10, list[0].TotalEmployees)
	assert.Equal(t, "Y", list[3].Office)

	latest, err := s.LatestByOffice(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 14, latest.TotalEmployees)

	_, err = s.LatestByOffice(ctx, "Z")
	assert.True(t, errors.Is(err, ErrNotFound))

	filtered, err := s.Filter(ctx, criteria("X", "2024-01-03"))
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	sum, err = s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 44, sum.TotalEmployees)
	assert.Equal(t, 22, sum.RegisteredEmployees)
	assert.Equal(t, 14, sum.EnrolledEmployees)
	assert.Equal(t, 7, sum.CompletedCourses)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, s.Ping(ctx))
}
