package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solace/internal/database"
	"solace/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Per-category read caps. The snapshot is request-scoped grounding material,
// not an export — recent rows carry almost all of the signal.
const (
	limitMoodEntries       = 60
	limitMonitoringEntries = 60
	limitJournalEntries    = 40
	limitClinicalNotes     = 30
	limitTasks             = 50
	limitHomework          = 50
	limitAssessments       = 20
	limitAssessmentResults = 30
	limitSessions          = 40
	limitChatMessages      = 50
	limitChatTags          = 50
	limitAIConversations   = 30
	limitAIInsights        = 30
	limitInterventions     = 20
	limitBiometrics        = 60
	limitMicroWins         = 30
	limitNotifications     = 30
)

// RecordStore provides typed read access to per-user records across every
// tracked category, plus parameterized insert-only writes for the companion's
// logging sinks. Pure data access — no business logic.
type RecordStore struct {
	mongodb *database.MongoDB
}

// NewRecordStore creates a new record store
func NewRecordStore(mongodb *database.MongoDB) *RecordStore {
	return &RecordStore{mongodb: mongodb}
}

// findByUser runs a per-user find against one collection, newest first by
// the given sort field, and decodes into a typed slice.
func findByUser[T any](ctx context.Context, coll *mongo.Collection, userID, sortField string, limit int64) ([]T, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}}).
		SetLimit(limit)

	cursor, err := coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return results, nil
}

// findSingleton fetches a singleton-per-user document, returning nil (not an
// error) when the user has no such record.
func findSingleton[T any](ctx context.Context, coll *mongo.Collection, userID string) (*T, error) {
	var doc T
	err := coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	return &doc, nil
}

// GetProfile returns the user's profile, or nil if absent
func (s *RecordStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return findSingleton[models.Profile](ctx, s.mongodb.Collection(database.CollectionProfiles), userID)
}

// GetPreferences returns the user's companion preferences, or nil if absent
func (s *RecordStore) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	return findSingleton[models.UserPreferences](ctx, s.mongodb.Collection(database.CollectionUserPreferences), userID)
}

// GetSummaryCache returns the cached narrative summary, or nil if never generated
func (s *RecordStore) GetSummaryCache(ctx context.Context, userID string) (*models.SummaryCache, error) {
	return findSingleton[models.SummaryCache](ctx, s.mongodb.Collection(database.CollectionSummaryCache), userID)
}

// GetMoodEntries returns recent mood entries, newest first
func (s *RecordStore) GetMoodEntries(ctx context.Context, userID string) ([]models.MoodEntry, error) {
	return findByUser[models.MoodEntry](ctx, s.mongodb.Collection(database.CollectionMoodEntries), userID, "createdAt", limitMoodEntries)
}

// GetMonitoringEntries returns recent daily monitoring entries, newest first
func (s *RecordStore) GetMonitoringEntries(ctx context.Context, userID string) ([]models.MonitoringEntry, error) {
	return findByUser[models.MonitoringEntry](ctx, s.mongodb.Collection(database.CollectionMonitoringEntries), userID, "entryDate", limitMonitoringEntries)
}

// GetJournalEntries returns recent journal entries, newest first
func (s *RecordStore) GetJournalEntries(ctx context.Context, userID string) ([]models.JournalEntry, error) {
	return findByUser[models.JournalEntry](ctx, s.mongodb.Collection(database.CollectionJournalEntries), userID, "createdAt", limitJournalEntries)
}

// GetClinicalNotes returns recent clinical notes, newest first
func (s *RecordStore) GetClinicalNotes(ctx context.Context, userID string) ([]models.ClinicalNote, error) {
	return findByUser[models.ClinicalNote](ctx, s.mongodb.Collection(database.CollectionClinicalNotes), userID, "createdAt", limitClinicalNotes)
}

// GetTasks returns recent non-archived tasks, newest first
func (s *RecordStore) GetTasks(ctx context.Context, userID string) ([]models.Task, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limitTasks)
	cursor, err := s.mongodb.Collection(database.CollectionTasks).Find(ctx,
		bson.M{"userId": userID, "archived": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]models.Task, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return results, nil
}

// GetHomework returns recent non-archived therapy homework, newest first
func (s *RecordStore) GetHomework(ctx context.Context, userID string) ([]models.TherapyHomework, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limitHomework)
	cursor, err := s.mongodb.Collection(database.CollectionTherapyHomework).Find(ctx,
		bson.M{"userId": userID, "archived": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]models.TherapyHomework, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return results, nil
}

// GetAssessments returns the user's assessment instruments, newest first
func (s *RecordStore) GetAssessments(ctx context.Context, userID string) ([]models.Assessment, error) {
	return findByUser[models.Assessment](ctx, s.mongodb.Collection(database.CollectionAssessments), userID, "createdAt", limitAssessments)
}

// GetAssessmentResults returns completed assessment results, newest first
func (s *RecordStore) GetAssessmentResults(ctx context.Context, userID string) ([]models.AssessmentResult, error) {
	return findByUser[models.AssessmentResult](ctx, s.mongodb.Collection(database.CollectionAssessmentResults), userID, "completedAt", limitAssessmentResults)
}

// GetSessions returns therapy sessions, newest first
func (s *RecordStore) GetSessions(ctx context.Context, userID string) ([]models.TherapySession, error) {
	return findByUser[models.TherapySession](ctx, s.mongodb.Collection(database.CollectionTherapySessions), userID, "sessionDate", limitSessions)
}

// GetChatMessages returns recent chat messages, newest first
func (s *RecordStore) GetChatMessages(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	return findByUser[models.ChatMessage](ctx, s.mongodb.Collection(database.CollectionChatMessages), userID, "createdAt", limitChatMessages)
}

// GetChatTags returns recent extracted chat tags, newest first
func (s *RecordStore) GetChatTags(ctx context.Context, userID string) ([]models.ChatTag, error) {
	return findByUser[models.ChatTag](ctx, s.mongodb.Collection(database.CollectionChatTags), userID, "createdAt", limitChatTags)
}

// GetAIConversations returns recent companion conversation logs, newest first
func (s *RecordStore) GetAIConversations(ctx context.Context, userID string) ([]models.AIConversation, error) {
	return findByUser[models.AIConversation](ctx, s.mongodb.Collection(database.CollectionAIConversations), userID, "createdAt", limitAIConversations)
}

// GetAIInsights returns recent generated insights, newest first
func (s *RecordStore) GetAIInsights(ctx context.Context, userID string) ([]models.AIInsight, error) {
	return findByUser[models.AIInsight](ctx, s.mongodb.Collection(database.CollectionAIInsights), userID, "createdAt", limitAIInsights)
}

// GetInterventions returns crisis intervention records, newest first
func (s *RecordStore) GetInterventions(ctx context.Context, userID string) ([]models.CrisisIntervention, error) {
	return findByUser[models.CrisisIntervention](ctx, s.mongodb.Collection(database.CollectionCrisisInterventions), userID, "createdAt", limitInterventions)
}

// GetBiometrics returns recent biometric measurements, newest first
func (s *RecordStore) GetBiometrics(ctx context.Context, userID string) ([]models.Biometric, error) {
	return findByUser[models.Biometric](ctx, s.mongodb.Collection(database.CollectionBiometrics), userID, "recordedAt", limitBiometrics)
}

// GetMicroWins returns recent detected micro-wins, newest first
func (s *RecordStore) GetMicroWins(ctx context.Context, userID string) ([]models.MicroWin, error) {
	return findByUser[models.MicroWin](ctx, s.mongodb.Collection(database.CollectionMicroWins), userID, "createdAt", limitMicroWins)
}

// GetNotifications returns recent notifications, newest first
func (s *RecordStore) GetNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	return findByUser[models.Notification](ctx, s.mongodb.Collection(database.CollectionNotifications), userID, "createdAt", limitNotifications)
}

// GetTherapistRelationships returns the user's therapist links
func (s *RecordStore) GetTherapistRelationships(ctx context.Context, userID string) ([]models.TherapistRelationship, error) {
	return findByUser[models.TherapistRelationship](ctx, s.mongodb.Collection(database.CollectionTherapistRelationships), userID, "startDate", 10)
}

// GetRecordEmbeddings returns the user's similarity-search corpus
func (s *RecordStore) GetRecordEmbeddings(ctx context.Context, userID string) ([]models.RecordEmbedding, error) {
	cursor, err := s.mongodb.Collection(database.CollectionRecordEmbeddings).Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]models.RecordEmbedding, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return results, nil
}

// --- Insert-only sinks ---
//
// All writes go through the driver's typed document encoding; log rows are
// never assembled as query text.

// LogAIConversation inserts one companion conversation turn
func (s *RecordStore) LogAIConversation(ctx context.Context, conv *models.AIConversation) error {
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	_, err := s.mongodb.Collection(database.CollectionAIConversations).InsertOne(ctx, conv)
	if err != nil {
		return fmt.Errorf("failed to insert ai_conversation: %w", err)
	}
	return nil
}

// LogInsight inserts one generated insight record
func (s *RecordStore) LogInsight(ctx context.Context, insight *models.AIInsight) error {
	if insight.ID.IsZero() {
		insight.ID = primitive.NewObjectID()
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now()
	}
	_, err := s.mongodb.Collection(database.CollectionAIInsights).InsertOne(ctx, insight)
	if err != nil {
		return fmt.Errorf("failed to insert ai_insight: %w", err)
	}
	return nil
}

// LogIntervention inserts one crisis intervention record
func (s *RecordStore) LogIntervention(ctx context.Context, intervention *models.CrisisIntervention) error {
	if intervention.ID.IsZero() {
		intervention.ID = primitive.NewObjectID()
	}
	if intervention.CreatedAt.IsZero() {
		intervention.CreatedAt = time.Now()
	}
	_, err := s.mongodb.Collection(database.CollectionCrisisInterventions).InsertOne(ctx, intervention)
	if err != nil {
		return fmt.Errorf("failed to insert crisis_intervention: %w", err)
	}
	return nil
}

// CreateNotification inserts one notification row
func (s *RecordStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	_, err := s.mongodb.Collection(database.CollectionNotifications).InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// UpsertSummaryCache replaces the user's cached narrative summary
func (s *RecordStore) UpsertSummaryCache(ctx context.Context, summary *models.SummaryCache) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.mongodb.Collection(database.CollectionSummaryCache).ReplaceOne(ctx,
		bson.M{"userId": summary.UserID}, summary, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert summary_cache: %w", err)
	}
	return nil
}

// ListUserIDsWithData returns the distinct user ids present in the mood
// entries collection. Used by the summary refresh job to pick candidates.
func (s *RecordStore) ListUserIDsWithData(ctx context.Context) ([]string, error) {
	raw, err := s.mongodb.Collection(database.CollectionMoodEntries).Distinct(ctx, "userId", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct failed: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
