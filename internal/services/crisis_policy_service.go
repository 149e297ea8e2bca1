package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"solace/internal/models"
)

// Crisis phrases matched case-insensitively against the raw user message.
// This detector is intentionally crude (substring, not semantic) and the
// word list is part of the behavioral contract — see the Detector hook for
// plugging in something stronger.
var defaultCrisisPhrases = []string{
	"suicide",
	"kill myself",
	"end my life",
	"hurt myself",
	"self harm",
	"want to die",
	"end it all",
	"no reason to live",
	"better off dead",
	"hopeless",
}

// Topic words that make an incoming message insight-worthy
var defaultTriggerTopics = []string{
	"trigger",
	"stress",
	"anxious",
	"panic",
	"overwhelmed",
	"can't sleep",
}

const (
	moodShiftThreshold    = 2.0 // recent-5 vs prior-5 average difference
	sessionGapDays        = 7
	insightBaseConfidence = 0.7
)

// CrisisDetector decides whether a raw message signals a crisis. The default
// is the keyword detector; stronger (e.g. model-backed) detectors can be
// plugged in without touching the policy.
type CrisisDetector interface {
	Detect(message string) bool
}

// KeywordCrisisDetector is the fixed-phrase substring detector
type KeywordCrisisDetector struct {
	phrases []string
}

// NewKeywordCrisisDetector builds the detector; empty phrases fall back to the default list
func NewKeywordCrisisDetector(phrases []string) *KeywordCrisisDetector {
	if len(phrases) == 0 {
		phrases = defaultCrisisPhrases
	}
	return &KeywordCrisisDetector{phrases: phrases}
}

// Detect reports whether the message contains any crisis phrase (case-insensitive)
func (d *KeywordCrisisDetector) Detect(message string) bool {
	lowered := strings.ToLower(message)
	for _, phrase := range d.phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// PolicySink is the insert-only persistence surface for policy side effects.
// Writes are fire-and-forget from the policy's perspective: failures are
// logged locally, never retried, never surfaced to the end user.
type PolicySink interface {
	LogIntervention(ctx context.Context, intervention *models.CrisisIntervention) error
	LogInsight(ctx context.Context, insight *models.AIInsight) error
	CreateNotification(ctx context.Context, notification *models.Notification) error
}

// CrisisPolicyService holds the stateless decision rules around crisis
// detection, insight-worthiness and insight synthesis. Each invocation is a
// pure function of its inputs plus the point-in-time snapshot; the only side
// effects are the sink writes.
type CrisisPolicyService struct {
	sink          PolicySink
	notifier      *Notifier
	detector      CrisisDetector
	triggerTopics []string
	metrics       *Metrics
}

// NewCrisisPolicyService creates the policy service. detector may be nil, in
// which case the default keyword detector is used.
func NewCrisisPolicyService(sink PolicySink, notifier *Notifier, detector CrisisDetector, triggerTopics []string, metrics *Metrics) *CrisisPolicyService {
	if detector == nil {
		detector = NewKeywordCrisisDetector(nil)
	}
	if len(triggerTopics) == 0 {
		triggerTopics = defaultTriggerTopics
	}
	return &CrisisPolicyService{
		sink:          sink,
		notifier:      notifier,
		detector:      detector,
		triggerTopics: triggerTopics,
		metrics:       metrics,
	}
}

// DetectCrisis reports whether the raw message signals a crisis
func (s *CrisisPolicyService) DetectCrisis(message string) bool {
	return s.detector.Detect(message)
}

// HandleMessage runs the full crisis check for one incoming message: detect,
// log an intervention with the risk level derived from context (conservative
// medium default when no context is available), and notify the therapist for
// high/critical risk. Returns whether a crisis was detected and the risk used.
func (s *CrisisPolicyService) HandleMessage(ctx context.Context, userID, message string, uc *models.UserContext) (bool, string) {
	if !s.DetectCrisis(message) {
		return false, ""
	}

	risk := models.RiskMedium
	if uc != nil {
		risk = models.MaxRisk(risk, CrisisRiskLevel(uc))
	}

	if s.metrics != nil {
		s.metrics.CrisisDetections.Inc()
	}
	log.Printf("🚨 [CRISIS] Keyword match for user %s (risk: %s)", userID, risk)

	intervention := &models.CrisisIntervention{
		UserID:           userID,
		TriggerSource:    "chat_message",
		RiskLevel:        risk,
		InterventionType: "companion_checkin",
		AIAssessment:     fmt.Sprintf("Crisis language detected in a companion message; assessed risk %s from recent records.", risk),
	}
	if err := s.sink.LogIntervention(ctx, intervention); err != nil {
		log.Printf("⚠️ [CRISIS] Failed to log intervention for user %s: %v", userID, err)
	}

	if risk == models.RiskHigh || risk == models.RiskCritical {
		s.notifyTherapist(ctx, userID, risk, intervention.ID.Hex())
	}

	return true, risk
}

// notifyTherapist records a notification row and publishes the escalation event
func (s *CrisisPolicyService) notifyTherapist(ctx context.Context, userID, risk, interventionID string) {
	notification := &models.Notification{
		UserID:  userID,
		Type:    "therapist_alert",
		Title:   "Crisis check-in recommended",
		Message: fmt.Sprintf("The companion assessed %s crisis risk for this client. Please review recent activity.", risk),
	}
	if err := s.sink.CreateNotification(ctx, notification); err != nil {
		log.Printf("⚠️ [CRISIS] Failed to create therapist notification for user %s: %v", userID, err)
	}

	if s.notifier != nil {
		s.notifier.PublishTherapistAlert(ctx, userID, risk, interventionID)
	}
}

// insightTriggers records which insight-worthiness conditions fired
type insightTriggers struct {
	moodShift  bool    // recent-5 vs prior-5 averages differ by more than 2
	topicMatch bool    // the message contains a trigger-topic word
	sessionGap bool    // more than 7 days since the last therapy session
	shiftDelta float64 // signed recent-minus-prior average difference
}

func (t insightTriggers) any() bool {
	return t.moodShift || t.topicMatch || t.sessionGap
}

// ShouldGenerateInsight decides whether this message + snapshot warrants a
// generated insight. Any single condition is sufficient.
func (s *CrisisPolicyService) ShouldGenerateInsight(uc *models.UserContext, message string) bool {
	return s.evaluateTriggers(uc, message).any()
}

func (s *CrisisPolicyService) evaluateTriggers(uc *models.UserContext, message string) insightTriggers {
	var triggers insightTriggers
	if uc == nil {
		return triggers
	}

	if delta, ok := recentVsPriorMoodShift(uc.MoodEntries); ok {
		triggers.shiftDelta = delta
		if delta > moodShiftThreshold || delta < -moodShiftThreshold {
			triggers.moodShift = true
		}
	}

	lowered := strings.ToLower(message)
	for _, topic := range s.triggerTopics {
		if strings.Contains(lowered, topic) {
			triggers.topicMatch = true
			break
		}
	}

	// The gap check only fires for users who have session history at all
	if last, ok := lastSessionDate(uc.Sessions); ok {
		if time.Since(last) > sessionGapDays*24*time.Hour {
			triggers.sessionGap = true
		}
	}

	return triggers
}

// recentVsPriorMoodShift compares the average of the 5 most recent mood
// scores with the average of the 5 before them. Needs at least 6 entries.
func recentVsPriorMoodShift(entries []models.MoodEntry) (float64, bool) {
	if len(entries) < 6 {
		return 0, false
	}

	sorted := sortMoodEntriesAscending(entries)
	recent := sorted[len(sorted)-recentMoodAvgWindow:]
	priorEnd := len(sorted) - recentMoodAvgWindow
	priorStart := priorEnd - recentMoodAvgWindow
	if priorStart < 0 {
		priorStart = 0
	}
	prior := sorted[priorStart:priorEnd]

	return average(recent) - average(prior), true
}

func average(entries []models.MoodEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, e := range entries {
		sum += e.Score
	}
	return float64(sum) / float64(len(entries))
}

func lastSessionDate(sessions []models.TherapySession) (time.Time, bool) {
	var last time.Time
	for _, s := range sessions {
		if s.SessionDate.After(last) {
			last = s.SessionDate
		}
	}
	return last, !last.IsZero()
}

// GenerateInsight evaluates the insight conditions and, when any fire,
// synthesizes and persists one insight record. Returns the insight or nil.
func (s *CrisisPolicyService) GenerateInsight(ctx context.Context, userID, message string, uc *models.UserContext) *models.AIInsight {
	triggers := s.evaluateTriggers(uc, message)
	if !triggers.any() {
		return nil
	}

	insight := s.synthesizeInsight(userID, uc, triggers)
	if err := s.sink.LogInsight(ctx, insight); err != nil {
		log.Printf("⚠️ [INSIGHT] Failed to persist insight for user %s: %v", userID, err)
	} else {
		log.Printf("💡 [INSIGHT] Generated %s insight for user %s", insight.Type, userID)
	}
	return insight
}

// synthesizeInsight picks the insight type from the fired conditions — a
// medium-or-higher crisis risk takes priority as a risk assessment — and
// assembles the title/description/severity/recommendations tuple.
func (s *CrisisPolicyService) synthesizeInsight(userID string, uc *models.UserContext, triggers insightTriggers) *models.AIInsight {
	risk := CrisisRiskLevel(uc)
	trend := MoodTrend(uc)
	recentTriggers := RecentTriggers(uc, 7)
	progress := ComputeTherapyProgress(uc)

	insight := &models.AIInsight{
		UserID:     userID,
		Confidence: insightBaseConfidence,
		Severity:   "info",
	}

	switch {
	case models.RiskRank(risk) >= models.RiskRank(models.RiskMedium):
		insight.Type = models.InsightRiskAssessment
		insight.Title = "Elevated risk indicators"
		insight.Description = fmt.Sprintf("Recent records suggest %s crisis risk. Mood trend is %s.", risk, trend)
		insight.Severity = risk
		insight.Recommendations = []string{
			"Check in with the client about how this week has felt",
			"Review recent mood and journal entries together",
			"Confirm the current safety plan is up to date",
		}
	case triggers.moodShift:
		insight.Type = models.InsightMoodPattern
		direction := "improved"
		if triggers.shiftDelta < 0 {
			direction = "declined"
		}
		insight.Title = "Notable mood shift"
		insight.Description = fmt.Sprintf("Average mood has %s by %.1f points across the last ten entries (trend: %s).",
			direction, absFloat(triggers.shiftDelta), trend)
		insight.Recommendations = []string{
			"Explore what changed during this period",
			"Note any new routines, events or stressors",
		}
	case triggers.topicMatch:
		insight.Type = models.InsightTriggerPattern
		insight.Title = "Recurring stress topics"
		desc := "The client raised a known stress topic in conversation."
		if len(recentTriggers) > 0 {
			desc = fmt.Sprintf("The client raised a known stress topic; recent mood triggers include: %s.", strings.Join(recentTriggers, ", "))
		}
		insight.Description = desc
		insight.Recommendations = []string{
			"Revisit coping strategies tied to these triggers",
			"Consider a grounding exercise for acute moments",
		}
	case triggers.sessionGap:
		insight.Type = models.InsightProgressTrend
		insight.Title = "Session gap"
		insight.Description = fmt.Sprintf("More than %d days since the last session. Homework: %d/%d completed; %d sessions in the last 30 days.",
			sessionGapDays, progress.HomeworkCompleted, progress.HomeworkTotal, progress.RecentSessions)
		insight.Recommendations = []string{
			"Reach out to schedule the next session",
			"Review open homework before the appointment",
		}
	default:
		insight.Type = models.InsightRecommendation
		insight.Title = "Companion check-in"
		insight.Description = fmt.Sprintf("Mood trend is %s with no acute signals.", trend)
		insight.Recommendations = []string{"Keep up the current tracking routine"}
	}

	return insight
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
