package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/pkg/metrics"
)

// reportDoc is the stored shape of a report. The ObjectID gives insertion
// order within one deployment.
type reportDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	report.Report `bson:",inline"`
	CreatedAt     time.Time `bson:"createdAt"`
}

// MongoStore persists reports in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and ensures the collection indexes exist.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "office", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mongo indexes: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Create inserts r.
func (s *MongoStore) Create(ctx context.Context, r report.Report) (err error) {
	start := time.Now()
	defer func() { observe(BackendMongo, "create", start, err) }()

	_, err = s.coll.InsertOne(ctx, reportDoc{Report: r, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if n, cerr := s.Count(ctx); cerr == nil {
		metrics.UpdateStoredReports(n)
	}
	return nil
}

// List returns every report in insertion order.
func (s *MongoStore) List(ctx context.Context) (out []report.Report, err error) {
	start := time.Now()
	defer func() { observe(BackendMongo, "list", start, err) }()

	return s.find(ctx, bson.D{})
}

// LatestByOffice returns the office's snapshot report.
func (s *MongoStore) LatestByOffice(ctx context.Context, office string) (r report.Report, err error) {
	start := time.Now()
	defer func() { observe(BackendMongo, "latest", start, err) }()

	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	var doc reportDoc
	err = s.coll.FindOne(ctx, bson.D{{Key: "office", Value: office}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return report.Report{}, ErrNotFound
	}
	if err != nil {
		return report.Report{}, fmt.Errorf("latest report for %q: %w", office, err)
	}
	return doc.Report, nil
}

// Filter returns the reports matching c in insertion order.
func (s *MongoStore) Filter(ctx context.Context, c aggregate.Criteria) (out []report.Report, err error) {
	start := time.Now()
	defer func() { observe(BackendMongo, "filter", start, err) }()

	return s.find(ctx, filterDoc(c))
}

// filterDoc renders c as a query document.
func filterDoc(c aggregate.Criteria) bson.D {
	c = c.Normalize()
	doc := bson.D{}
	if c.Office != "" {
		doc = append(doc, bson.E{Key: "office", Value: c.Office})
	}
	if c.Date != "" {
		doc = append(doc, bson.E{Key: "date", Value: c.Date})
	}
	return doc
}

// summaryPipeline groups the whole collection into one totals document.
func summaryPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalEmployees", Value: bson.D{{Key: "$sum", Value: "$totalEmployees"}}},
			{Key: "registeredEmployees", Value: bson.D{{Key: "$sum", Value: "$registeredEmployees"}}},
			{Key: "enrolledEmployees", Value: bson.D{{Key: "$sum", Value: "$enrolledEmployees"}}},
			{Key: "completedCourses", Value: bson.D{{Key: "$sum", Value: "$completedCourses"}}},
		}}},
	}
}

// Summary sums every stored report.
func (s *MongoStore) Summary(ctx context.Context) (sum report.Summary, err error) {
	start := time.Now()
	defer func() { observe(BackendMongo, "summary", start, err) }()

	cur, err := s.coll.Aggregate(ctx, summaryPipeline())
	if err != nil {
		return report.Summary{}, fmt.Errorf("summarize reports: %w", err)
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		if err = cur.Decode(&sum); err != nil {
			return report.Summary{}, fmt.Errorf("decode summary: %w", err)
		}
	}
	if err = cur.Err(); err != nil {
		return report.Summary{}, fmt.Errorf("summarize reports: %w", err)
	}
	return sum, nil
}

// Count returns the number of stored reports.
func (s *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return int(n), nil
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) find(ctx context.Context, filter bson.D) ([]report.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]report.Report, 0)
	for cur.Next(ctx) {
		var doc reportDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, doc.Report)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}
