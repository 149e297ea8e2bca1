package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AIInsight is one generated insight record handed to the persistence sink
type AIInsight struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            string             `bson:"userId" json:"user_id"`
	Type              string             `bson:"type" json:"type"`
	Title             string             `bson:"title" json:"title"`
	Description       string             `bson:"description" json:"description"`
	Confidence        float64            `bson:"confidence" json:"confidence"`
	Severity          string             `bson:"severity" json:"severity"`
	Recommendations   []string           `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
	TherapistNotified bool               `bson:"therapistNotified" json:"therapist_notified"`
	UserAcknowledged  bool               `bson:"userAcknowledged" json:"user_acknowledged"`
	CreatedAt         time.Time          `bson:"createdAt" json:"created_at"`
}

// Crisis risk levels, ordinal: low < medium < high < critical
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// riskRank maps risk levels to their ordinal position
var riskRank = map[string]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// RiskRank returns the ordinal position of a risk level (unknown levels rank lowest)
func RiskRank(level string) int {
	return riskRank[level]
}

// MaxRisk returns the more severe of two risk levels
func MaxRisk(a, b string) string {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

// Insight types produced by the crisis & insight policy
const (
	InsightMoodPattern    = "mood_pattern"
	InsightTriggerPattern = "trigger_pattern"
	InsightProgressTrend  = "progress_trend"
	InsightRiskAssessment = "risk_assessment"
	InsightRecommendation = "recommendation"
)

// Mood trend classifications
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// AI interaction levels (user preference)
const (
	InteractionMinimal   = "minimal"
	InteractionStandard  = "standard"
	InteractionProactive = "proactive"
)

// TherapyProgress is the homework/session rollup derived from a context snapshot
type TherapyProgress struct {
	HomeworkCompleted int      `json:"homework_completed"`
	HomeworkTotal     int      `json:"homework_total"`
	RecentSessions    int      `json:"recent_sessions"` // sessions in the last 30 days
	Goals             []string `json:"goals"`           // de-duplicated union of session goals
}
