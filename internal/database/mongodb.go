package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// Collection names. One per tracked record category, plus the similarity
// index and the insert-only companion sinks.
const (
	CollectionProfiles               = "profiles"
	CollectionMoodEntries            = "mood_entries"
	CollectionMonitoringEntries      = "monitoring_entries"
	CollectionJournalEntries         = "journal_entries"
	CollectionClinicalNotes          = "clinical_notes"
	CollectionTasks                  = "tasks"
	CollectionTherapyHomework        = "therapy_homework"
	CollectionAssessments            = "assessments"
	CollectionAssessmentResults      = "assessment_results"
	CollectionTherapySessions        = "therapy_sessions"
	CollectionChatMessages           = "chat_messages"
	CollectionChatTags               = "chat_tags"
	CollectionAIConversations        = "ai_conversations"
	CollectionAIInsights             = "ai_insights"
	CollectionUserPreferences        = "user_preferences"
	CollectionCrisisInterventions    = "crisis_interventions"
	CollectionBiometrics             = "biometrics"
	CollectionMicroWins              = "micro_wins"
	CollectionNotifications          = "notifications"
	CollectionSummaryCache           = "summary_cache"
	CollectionTherapistRelationships = "therapist_relationships"

	// Similarity-search corpus (precomputed embeddings per text-bearing record)
	CollectionRecordEmbeddings = "record_embeddings"
)

// NewMongoDB creates a new MongoDB connection with connection pooling
func NewMongoDB(uri string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	if dbName == "" {
		dbName = "solace"
	}

	db := &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}

	log.Printf("✅ Connected to MongoDB database: %s", dbName)

	return db, nil
}

// extractDBName extracts the database name from a MongoDB URI
// (mongodb://localhost:27017/solace?authSource=admin -> solace)
func extractDBName(uri string) string {
	lastSlash := -1
	questionMark := -1

	for i, c := range uri {
		if c == '/' {
			lastSlash = i
		}
		if c == '?' && questionMark == -1 {
			questionMark = i
		}
	}

	if lastSlash != -1 {
		start := lastSlash + 1
		end := len(uri)
		if questionMark != -1 && questionMark > lastSlash {
			end = questionMark
		}
		if start < end {
			dbName := uri[start:end]
			if dbName != "" {
				return dbName
			}
		}
	}

	return "solace"
}

// Initialize creates indexes for all collections
func (m *MongoDB) Initialize(ctx context.Context) error {
	log.Println("📦 Initializing MongoDB indexes...")

	// Singleton-per-user categories
	for _, coll := range []string{CollectionProfiles, CollectionUserPreferences, CollectionSummaryCache} {
		if err := m.createIndexes(ctx, coll, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		}); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}

	// Per-user time series, queried newest first
	recencyIndexed := []string{
		CollectionMoodEntries,
		CollectionJournalEntries,
		CollectionClinicalNotes,
		CollectionTasks,
		CollectionTherapyHomework,
		CollectionAssessments,
		CollectionChatMessages,
		CollectionChatTags,
		CollectionAIConversations,
		CollectionAIInsights,
		CollectionCrisisInterventions,
		CollectionMicroWins,
		CollectionNotifications,
	}
	for _, coll := range recencyIndexed {
		if err := m.createIndexes(ctx, coll, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		}); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}

	// Categories with their own date fields
	if err := m.createIndexes(ctx, CollectionMonitoringEntries, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "entryDate", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create monitoring_entries indexes: %w", err)
	}
	if err := m.createIndexes(ctx, CollectionTherapySessions, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "sessionDate", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create therapy_sessions indexes: %w", err)
	}
	if err := m.createIndexes(ctx, CollectionAssessmentResults, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "completedAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create assessment_results indexes: %w", err)
	}
	if err := m.createIndexes(ctx, CollectionBiometrics, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "recordedAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create biometrics indexes: %w", err)
	}
	if err := m.createIndexes(ctx, CollectionTherapistRelationships, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create therapist_relationships indexes: %w", err)
	}

	// Similarity corpus: all lookups are per user, optionally per table
	if err := m.createIndexes(ctx, CollectionRecordEmbeddings, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "tableName", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "recordId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("failed to create record_embeddings indexes: %w", err)
	}

	log.Println("✅ MongoDB indexes initialized")
	return nil
}

// createIndexes creates indexes for a collection
func (m *MongoDB) createIndexes(ctx context.Context, collectionName string, indexes []mongo.IndexModel) error {
	collection := m.database.Collection(collectionName)
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Collection returns a handle to the named collection
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// DatabaseName returns the name of the connected database
func (m *MongoDB) DatabaseName() string {
	return m.dbName
}

// Close disconnects from MongoDB
func (m *MongoDB) Close(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Ping verifies the connection is still alive
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}
