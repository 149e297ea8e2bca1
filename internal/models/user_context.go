package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is the identity slice of a user's context.
// PHI contact fields (email, phone) are deliberately not part of this shape —
// the companion never needs them and must never see them.
type Profile struct {
	UserID        string    `bson:"userId" json:"user_id"`
	FirstName     string    `bson:"firstName" json:"first_name"`
	LastName      string    `bson:"lastName" json:"last_name"`
	PreferredName string    `bson:"preferredName,omitempty" json:"preferred_name,omitempty"`
	Role          string    `bson:"role" json:"role"` // "client", "therapist"
	CreatedAt     time.Time `bson:"createdAt" json:"created_at"`
}

// MoodEntry is a single self-reported mood check-in (score 1-10)
type MoodEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	Score     int                `bson:"score" json:"score"` // 1-10
	Trigger   string             `bson:"trigger,omitempty" json:"trigger,omitempty"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// MonitoringEntry is a multi-dimensional daily wellbeing rating
type MonitoringEntry struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            string             `bson:"userId" json:"user_id"`
	MoodRating        int                `bson:"moodRating" json:"mood_rating"`
	EnergyLevel       int                `bson:"energyLevel" json:"energy_level"`
	SleepQuality      int                `bson:"sleepQuality" json:"sleep_quality"`
	StressLevel       int                `bson:"stressLevel" json:"stress_level"`
	AnxietyLevel      int                `bson:"anxietyLevel" json:"anxiety_level"`
	SleepHours        float64            `bson:"sleepHours" json:"sleep_hours"`
	ExerciseMinutes   int                `bson:"exerciseMinutes" json:"exercise_minutes"`
	SocialInteraction bool               `bson:"socialInteraction" json:"social_interaction"`
	JournalNotes      string             `bson:"journalNotes,omitempty" json:"journal_notes,omitempty"`
	GratitudeNotes    string             `bson:"gratitudeNotes,omitempty" json:"gratitude_notes,omitempty"`
	EntryDate         time.Time          `bson:"entryDate" json:"entry_date"`
}

// JournalEntry is a free-text journal record with optional mood score and tags
type JournalEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	Content   string             `bson:"content" json:"content"`
	MoodScore *int               `bson:"moodScore,omitempty" json:"mood_score,omitempty"`
	Tags      []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// ClinicalNote is therapist-authored free text about the client
type ClinicalNote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Task is a general to-do item assigned to or created by the user
type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"user_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Status      string             `bson:"status" json:"status"` // "pending", "in_progress", "completed"
	Archived    bool               `bson:"archived" json:"archived"`
	DueDate     *time.Time         `bson:"dueDate,omitempty" json:"due_date,omitempty"`
	CompletedAt *time.Time         `bson:"completedAt,omitempty" json:"completed_at,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"created_at"`
}

// TherapyHomework is a therapist-assigned exercise with completion metadata
type TherapyHomework struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID               string             `bson:"userId" json:"user_id"`
	Title                string             `bson:"title" json:"title"`
	Description          string             `bson:"description,omitempty" json:"description,omitempty"`
	Status               string             `bson:"status" json:"status"`
	Archived             bool               `bson:"archived" json:"archived"`
	DueDate              *time.Time         `bson:"dueDate,omitempty" json:"due_date,omitempty"`
	CompletionPercentage int                `bson:"completionPercentage" json:"completion_percentage"`
	CompletionNotes      string             `bson:"completionNotes,omitempty" json:"completion_notes,omitempty"`
	MoodBefore           *int               `bson:"moodBefore,omitempty" json:"mood_before,omitempty"`
	MoodAfter            *int               `bson:"moodAfter,omitempty" json:"mood_after,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt" json:"created_at"`
}

// Assessment is a recurring clinical instrument (e.g. PHQ-9, GAD-7)
type Assessment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"userId" json:"user_id"`
	InstrumentName string             `bson:"instrumentName" json:"instrument_name"`
	Recurrence     string             `bson:"recurrence,omitempty" json:"recurrence,omitempty"` // "weekly", "biweekly", "monthly"
	NextDueAt      *time.Time         `bson:"nextDueAt,omitempty" json:"next_due_at,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"created_at"`
}

// AssessmentResult is one completed instrument, referencing its parent by instrument name
type AssessmentResult struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"userId" json:"user_id"`
	InstrumentName string             `bson:"instrumentName" json:"instrument_name"`
	Score          int                `bson:"score" json:"score"`
	Interpretation string             `bson:"interpretation,omitempty" json:"interpretation,omitempty"`
	SeverityLevel  string             `bson:"severityLevel,omitempty" json:"severity_level,omitempty"`
	CompletedAt    time.Time          `bson:"completedAt" json:"completed_at"`
}

// TherapySession is one therapy appointment with its clinical metadata
type TherapySession struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"userId" json:"user_id"`
	SessionDate      time.Time          `bson:"sessionDate" json:"session_date"`
	SessionType      string             `bson:"sessionType,omitempty" json:"session_type,omitempty"`
	DurationMinutes  int                `bson:"durationMinutes" json:"duration_minutes"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Goals            []string           `bson:"goals,omitempty" json:"goals,omitempty"`
	AssignedHomework []string           `bson:"assignedHomework,omitempty" json:"assigned_homework,omitempty"`
	Techniques       []string           `bson:"techniques,omitempty" json:"techniques,omitempty"`
	MoodBefore       *int               `bson:"moodBefore,omitempty" json:"mood_before,omitempty"`
	MoodAfter        *int               `bson:"moodAfter,omitempty" json:"mood_after,omitempty"`
	Rating           *int               `bson:"rating,omitempty" json:"rating,omitempty"`
	TherapistName    string             `bson:"therapistName,omitempty" json:"therapist_name,omitempty"`
}

// ChatMessage is one message in the companion chat UI
type ChatMessage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"user_id"`
	Content     string             `bson:"content" json:"content"`
	SenderRole  string             `bson:"senderRole" json:"sender_role"` // "user", "assistant", "therapist"
	MessageType string             `bson:"messageType,omitempty" json:"message_type,omitempty"`
	SessionID   string             `bson:"sessionId,omitempty" json:"session_id,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"created_at"`
}

// ChatTag is a topic tag extracted from chat history
type ChatTag struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"userId" json:"user_id"`
	Tag              string             `bson:"tag" json:"tag"`
	Category         string             `bson:"category,omitempty" json:"category,omitempty"`
	RelevanceScore   float64            `bson:"relevanceScore" json:"relevance_score"`
	Confidence       float64            `bson:"confidence" json:"confidence"`
	ExtractionSource string             `bson:"extractionSource,omitempty" json:"extraction_source,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"created_at"`
}

// AIConversation is one logged turn of the AI companion
type AIConversation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"userId" json:"user_id"`
	Role            string             `bson:"role" json:"role"` // "user", "assistant"
	Content         string             `bson:"content" json:"content"`
	ContextSnapshot string             `bson:"contextSnapshot,omitempty" json:"context_snapshot,omitempty"`
	Model           string             `bson:"model,omitempty" json:"model,omitempty"`
	Confidence      float64            `bson:"confidence,omitempty" json:"confidence,omitempty"`
	UserFeedback    string             `bson:"userFeedback,omitempty" json:"user_feedback,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"created_at"`
}

// UserPreferences holds companion interaction preferences. Singleton per user.
type UserPreferences struct {
	UserID             string   `bson:"userId" json:"user_id"`
	PreferredName      string   `bson:"preferredName,omitempty" json:"preferred_name,omitempty"`
	CommunicationStyle string   `bson:"communicationStyle,omitempty" json:"communication_style,omitempty"`
	TherapyGoals       []string `bson:"therapyGoals,omitempty" json:"therapy_goals,omitempty"`
	TriggersToAvoid    []string `bson:"triggersToAvoid,omitempty" json:"triggers_to_avoid,omitempty"`
	CopingStrategies   []string `bson:"copingStrategies,omitempty" json:"coping_strategies,omitempty"`
	InteractionLevel   string   `bson:"interactionLevel,omitempty" json:"interaction_level,omitempty"` // "minimal", "standard", "proactive"
	Language           string   `bson:"language,omitempty" json:"language,omitempty"`
}

// CrisisIntervention is one logged crisis event and its outcome
type CrisisIntervention struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"userId" json:"user_id"`
	TriggerSource    string             `bson:"triggerSource" json:"trigger_source"` // "chat_message", "journal", "mood_pattern"
	RiskLevel        string             `bson:"riskLevel" json:"risk_level"`
	InterventionType string             `bson:"interventionType,omitempty" json:"intervention_type,omitempty"`
	AIAssessment     string             `bson:"aiAssessment,omitempty" json:"ai_assessment,omitempty"`
	Outcome          string             `bson:"outcome,omitempty" json:"outcome,omitempty"`
	ResolvedAt       *time.Time         `bson:"resolvedAt,omitempty" json:"resolved_at,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"created_at"`
}

// Resolved reports whether the intervention has been closed out
func (c *CrisisIntervention) Resolved() bool {
	return c.ResolvedAt != nil
}

// Biometric is one named wellness measurement (heart rate, steps, HRV...)
type Biometric struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"userId" json:"user_id"`
	Metric     string             `bson:"metric" json:"metric"`
	Value      float64            `bson:"value" json:"value"`
	Source     string             `bson:"source,omitempty" json:"source,omitempty"`
	RecordedAt time.Time          `bson:"recordedAt" json:"recorded_at"`
}

// MicroWin is a detected positive event worth celebrating
type MicroWin struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"userId" json:"user_id"`
	Text            string             `bson:"text" json:"text"`
	DetectionSource string             `bson:"detectionSource,omitempty" json:"detection_source,omitempty"`
	Confidence      float64            `bson:"confidence" json:"confidence"`
	Celebrated      bool               `bson:"celebrated" json:"celebrated"`
	CreatedAt       time.Time          `bson:"createdAt" json:"created_at"`
}

// Notification is an in-app notification row
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	Type      string             `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message,omitempty" json:"message,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// SummaryCache is the precomputed narrative summary of a user's data. Singleton per user.
type SummaryCache struct {
	UserID      string    `bson:"userId" json:"user_id"`
	Summary     string    `bson:"summary" json:"summary"`
	GeneratedBy string    `bson:"generatedBy" json:"generated_by"` // model identifier
	RefreshedAt time.Time `bson:"refreshedAt" json:"refreshed_at"`
}

// TherapistRelationship links a client to a therapist
type TherapistRelationship struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"userId" json:"user_id"`
	TherapistName    string             `bson:"therapistName" json:"therapist_name"`
	Status           string             `bson:"status" json:"status"` // "active", "paused", "ended"
	StartDate        time.Time          `bson:"startDate" json:"start_date"`
	SessionFrequency string             `bson:"sessionFrequency,omitempty" json:"session_frequency,omitempty"` // "weekly", "biweekly", "monthly"
}

// UserContext is the canonical point-in-time snapshot of one user's records
// across every tracked category. It is a value object: built once per request,
// immutable after construction, never persisted as-is.
//
// Every list field is always non-nil — a failed or empty category read yields
// an empty slice so the derived-signal calculators can run unconditionally.
// Profile, Preferences and Summary are the only nullable fields.
type UserContext struct {
	Profile           *Profile                `json:"profile"`
	MoodEntries       []MoodEntry             `json:"mood_entries"`
	MonitoringEntries []MonitoringEntry       `json:"monitoring_entries"`
	JournalEntries    []JournalEntry          `json:"journal_entries"`
	ClinicalNotes     []ClinicalNote          `json:"clinical_notes"`
	Tasks             []Task                  `json:"tasks"`
	Homework          []TherapyHomework       `json:"therapy_homework"`
	Assessments       []Assessment            `json:"assessments"`
	AssessmentResults []AssessmentResult      `json:"assessment_results"`
	Sessions          []TherapySession        `json:"therapy_sessions"`
	ChatMessages      []ChatMessage           `json:"chat_messages"`
	ChatTags          []ChatTag               `json:"chat_tags"`
	AIConversations   []AIConversation        `json:"ai_conversations"`
	AIInsights        []AIInsight             `json:"ai_insights"`
	Preferences       *UserPreferences        `json:"user_preferences"`
	Interventions     []CrisisIntervention    `json:"crisis_interventions"`
	Biometrics        []Biometric             `json:"biometrics"`
	MicroWins         []MicroWin              `json:"micro_wins"`
	Notifications     []Notification          `json:"notifications"`
	Summary           *SummaryCache           `json:"summary_cache"`
	Therapists        []TherapistRelationship `json:"therapist_relationship"`

	// Provenance metadata
	ContextGeneratedAt time.Time `json:"context_generated_at"`
	DataSources        []string  `json:"data_sources"` // categories whose read succeeded
}
