package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Query intent labels assigned by the retrieval engine
const (
	IntentMoodData     = "personal_mood_data"
	IntentSessionData  = "personal_session_data"
	IntentProgressData = "personal_progress_data"
	IntentCopingTools  = "coping_tools_info"
	IntentGeneral      = "general_search"
)

// RetrievalResult is one scored, source-tagged fragment of a user's data
// returned for a query. Constructed fresh per query and never cached beyond
// the single response cycle.
type RetrievalResult struct {
	TableName  string                 `json:"table_name"`
	RecordID   string                 `json:"record_id"`
	Preview    string                 `json:"preview"`
	Content    string                 `json:"content"`
	Similarity float64                `json:"similarity"` // normalized to [0,1]
	Intent     string                 `json:"intent"`
	Relevance  string                 `json:"relevance"` // human-readable justification
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// RecordEmbedding is one indexed row of the similarity-search corpus: the
// text of a source record plus its precomputed embedding vector.
type RecordEmbedding struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	TableName string             `bson:"tableName" json:"table_name"`
	RecordID  string             `bson:"recordId" json:"record_id"`
	Content   string             `bson:"content" json:"content"`
	Preview   string             `bson:"preview,omitempty" json:"preview,omitempty"`
	Embedding []float32          `bson:"embedding" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// CompanionResponse is the caller-facing result of one companion query
type CompanionResponse struct {
	ResponseText     string   `json:"response_text"`
	TablesQueried    []string `json:"tables_queried"`
	IntentClassified string   `json:"intent_classified"`
}
