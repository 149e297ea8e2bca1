package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"solace/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"github.com/viterin/vek/vek32"
)

// Retrieval defaults
const (
	defaultMatchCount          = 10
	defaultSimilarityThreshold = 0.7
	fallbackBaseScore          = 0.4
	fallbackTokenBoost         = 0.1
	fallbackMaxScore           = 0.9
	queryEmbeddingTTL          = 5 * time.Minute
)

// Intent phrase sets for the deterministic fallback classifier. Matching is a
// case-insensitive substring test against the whole query.
var intentPhrases = []struct {
	intent  string
	phrases []string
}{
	{models.IntentMoodData, []string{"mood", "feeling", "feel", "emotion"}},
	{models.IntentSessionData, []string{"session", "therapy task", "homework", "appointment"}},
	{models.IntentProgressData, []string{"progress", "improvement", "better", "goal"}},
	{models.IntentCopingTools, []string{"breathing", "coping", "tool", "exercise", "technique", "grounding"}},
}

// EmbeddingProvider is the slice of the provider client the retrieval engine needs
type EmbeddingProvider interface {
	Available() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingIndex reads the precomputed similarity corpus for one user
type EmbeddingIndex interface {
	GetRecordEmbeddings(ctx context.Context, userID string) ([]models.RecordEmbedding, error)
}

// RetrievalService ranks fragments of a user's data against a free-text
// query. The embedding-similarity path is primary; any failure there falls
// through to the deterministic keyword path, which never errors — the last
// line of defense before the caller sees "no information found".
type RetrievalService struct {
	provider   EmbeddingProvider
	index      EmbeddingIndex
	queryCache *gocache.Cache // query hash -> []float32, avoids re-embedding repeats
	metrics    *Metrics
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(provider EmbeddingProvider, index EmbeddingIndex, metrics *Metrics) *RetrievalService {
	return &RetrievalService{
		provider:   provider,
		index:      index,
		queryCache: gocache.New(queryEmbeddingTTL, 10*time.Minute),
		metrics:    metrics,
	}
}

// Search returns query-relevant fragments of the user's data, most similar
// first, capped at matchCount. It never returns an error alongside an empty
// hard failure: the fallback path absorbs every primary-path error.
func (s *RetrievalService) Search(
	ctx context.Context,
	userID string,
	query string,
	uc *models.UserContext,
	matchCount int,
	similarityThreshold float64,
) []models.RetrievalResult {
	if matchCount <= 0 {
		matchCount = defaultMatchCount
	}
	if similarityThreshold <= 0 {
		similarityThreshold = defaultSimilarityThreshold
	}

	if s.provider != nil && s.provider.Available() {
		results, err := s.searchByEmbedding(ctx, userID, query, matchCount, similarityThreshold)
		if err == nil {
			return results
		}
		log.Printf("⚠️ [RETRIEVAL] Embedding path failed for user %s: %v (falling back to keyword search)", userID, err)
	}

	if s.metrics != nil {
		s.metrics.RetrievalFallbacks.Inc()
	}
	return s.searchByKeywords(query, uc, matchCount)
}

// searchByEmbedding ranks the user's indexed records by cosine similarity to
// the embedded query.
func (s *RetrievalService) searchByEmbedding(
	ctx context.Context,
	userID string,
	query string,
	matchCount int,
	similarityThreshold float64,
) ([]models.RetrievalResult, error) {
	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	corpus, err := s.index.GetRecordEmbeddings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding corpus: %w", err)
	}

	intent := classifyIntent(query)

	results := make([]models.RetrievalResult, 0, matchCount)
	for _, record := range corpus {
		if len(record.Embedding) != len(queryVec) {
			continue
		}
		similarity := normalizeSimilarity(float64(vek32.CosineSimilarity(queryVec, record.Embedding)))
		if similarity < similarityThreshold {
			continue
		}

		preview := record.Preview
		if preview == "" {
			preview = makePreview(record.Content)
		}
		results = append(results, models.RetrievalResult{
			TableName:  record.TableName,
			RecordID:   record.RecordID,
			Preview:    preview,
			Content:    record.Content,
			Similarity: similarity,
			Intent:     intent,
			Relevance:  fmt.Sprintf("Semantic similarity %.2f to your question", similarity),
			Metadata:   map[string]interface{}{"path": "embedding"},
		})
	}

	// Descending by score. Ties keep the corpus order — the secondary order
	// for exactly equal scores is implementation-defined.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > matchCount {
		results = results[:matchCount]
	}

	log.Printf("🔎 [RETRIEVAL] Embedding path: %d/%d records above threshold %.2f for user %s",
		len(results), len(corpus), similarityThreshold, userID)
	return results, nil
}

// embedQuery embeds the query text, memoizing repeats for a few minutes
func (s *RetrievalService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	sum := sha256.Sum256([]byte(query))
	key := hex.EncodeToString(sum[:])

	if cached, found := s.queryCache.Get(key); found {
		return cached.([]float32), nil
	}

	vec, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Set(key, vec, gocache.DefaultExpiration)
	return vec, nil
}

// normalizeSimilarity clamps a cosine similarity into [0,1]
func normalizeSimilarity(cos float64) float64 {
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// classifyIntent assigns a coarse intent label by testing the query against
// fixed phrase sets. Deterministic; first matching set wins.
func classifyIntent(query string) string {
	lowered := strings.ToLower(query)
	for _, set := range intentPhrases {
		for _, phrase := range set.phrases {
			if strings.Contains(lowered, phrase) {
				return set.intent
			}
		}
	}
	return models.IntentGeneral
}

// queryTokens extracts the significant words of a query for substring scoring
func queryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?\"'()")
		if len(f) > 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// fragment is one candidate row for the keyword path before scoring
type fragment struct {
	table   string
	id      string
	preview string
	content string
}

// searchByKeywords is the deterministic fallback: classify intent, select the
// matching record categories from the snapshot, and score fragments by query
// token hits. Always succeeds; an empty snapshot yields an empty list.
func (s *RetrievalService) searchByKeywords(query string, uc *models.UserContext, matchCount int) []models.RetrievalResult {
	intent := classifyIntent(query)
	if uc == nil {
		return []models.RetrievalResult{}
	}

	candidates := collectCandidates(intent, uc)
	tokens := queryTokens(query)

	results := make([]models.RetrievalResult, 0, len(candidates))
	for _, c := range candidates {
		hits := 0
		haystack := strings.ToLower(c.content)
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				hits++
			}
		}

		// General searches need at least one token hit; intent-scoped
		// categories are relevant by selection alone.
		if intent == models.IntentGeneral && hits == 0 {
			continue
		}

		score := fallbackBaseScore + float64(hits)*fallbackTokenBoost
		if score > fallbackMaxScore {
			score = fallbackMaxScore
		}

		relevance := fmt.Sprintf("Matched your %s records for a %s question", c.table, intentLabel(intent))
		if hits > 0 {
			relevance = fmt.Sprintf("Contains %d term(s) from your question (%s)", hits, c.table)
		}

		results = append(results, models.RetrievalResult{
			TableName:  c.table,
			RecordID:   c.id,
			Preview:    c.preview,
			Content:    c.content,
			Similarity: score,
			Intent:     intent,
			Relevance:  relevance,
			Metadata:   map[string]interface{}{"path": "keyword"},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > matchCount {
		results = results[:matchCount]
	}

	log.Printf("🔎 [RETRIEVAL] Keyword path: %d results (intent: %s)", len(results), intent)
	return results
}

// intentLabel renders an intent constant as plain prose for justifications
func intentLabel(intent string) string {
	switch intent {
	case models.IntentMoodData:
		return "mood"
	case models.IntentSessionData:
		return "session"
	case models.IntentProgressData:
		return "progress"
	case models.IntentCopingTools:
		return "coping tools"
	default:
		return "general"
	}
}

// collectCandidates maps an intent to the snapshot categories it draws from
func collectCandidates(intent string, uc *models.UserContext) []fragment {
	switch intent {
	case models.IntentMoodData:
		return append(moodFragments(uc), monitoringFragments(uc)...)
	case models.IntentSessionData:
		return append(sessionFragments(uc), homeworkFragments(uc)...)
	case models.IntentProgressData:
		frags := homeworkFragments(uc)
		frags = append(frags, sessionFragments(uc)...)
		frags = append(frags, microWinFragments(uc)...)
		return frags
	case models.IntentCopingTools:
		return copingFragments(uc)
	default:
		frags := journalFragments(uc)
		frags = append(frags, moodFragments(uc)...)
		frags = append(frags, chatFragments(uc)...)
		frags = append(frags, noteFragments(uc)...)
		return frags
	}
}

func moodFragments(uc *models.UserContext) []fragment {
	frags := make([]fragment, 0, len(uc.MoodEntries))
	for _, e := range uc.MoodEntries {
		preview := fmt.Sprintf("Mood %d/10 on %s", e.Score, e.CreatedAt.Format("Jan 2"))
		if e.Trigger != "" {
			preview += fmt.Sprintf(" — trigger: %s", e.Trigger)
		}
		content := preview
		if e.Notes != "" {
			content += ". " + e.Notes
		}
		frags = append(frags, fragment{"mood_entries", e.ID.Hex(), preview, content})
	}
	return frags
}

func monitoringFragments(uc *models.UserContext) []fragment {
	frags := make([]fragment, 0, len(uc.MonitoringEntries))
	for _, e := range uc.MonitoringEntries {
		preview := fmt.Sprintf("Daily check-in on %s: mood %d, energy %d, sleep %.1fh",
			e.EntryDate.Format("Jan 2"), e.MoodRating, e.EnergyLevel, e.SleepHours)
		content := preview
		if e.JournalNotes != "" {
			content += ". " + e.JournalNotes
		}
		frags = append(frags, fragment{"monitoring_entries", e.ID.Hex(), preview, content})
	}
	return frags
}

func journalFragments(uc *models.UserContext) []fragment {
	frags := make([]fragment, 0, len(uc.JournalEntries))
	for _, e := range uc.JournalEntries {
		frags = append(frags, fragment{"journal_entries", e.ID.Hex(), makePreview(e.Content), e.Content})
	}
	return frags
}

func sessionFragments(uc *models.UserContext) []fragment {
	frags := make([]fragment, 0, len(uc.Sessions))
	for _, s := range uc.Sessions {
		preview := fmt.Sprintf("Session on %s", s.SessionDate.Format("Jan 2"))
		if s.TherapistName != "" {
			preview += " with " + s.TherapistName
		}
		content := preview
		if len(s.Goals) > 0 {
			content += ". Goals: " + strings.Join(s.Goals, ", ")
		}
		if s.Notes != "" {
			content += ". " + s.Notes
		}
		frags = append(frags, fragment{"therapy_sessions", s.ID.Hex(), preview, content})
	}
	return frags
}

func homeworkFragments(uc *models.UserContext) []fragment {
	frags := make([]fragment, 0, len(uc.Homework))
	for _, hw := range uc.Homework {
		preview := fmt.Sprintf("Homework: %s (%s)", hw.Title, hw.Status)
		content := preview
		if hw.Description != "" {
			content += ". " + hw.Description
		}
		frags = append(frags, fragment{"therapy_homework", hw.ID.Hex(), preview, content})
	}
	return frags
}

func microWinFragments(uc *models.UserContext) []fragment {
	frags := make([]fragment, 0, len(uc.MicroWins))
	for _, w := range uc.MicroWins {
		frags = append(frags, fragment{"micro_wins", w.ID.Hex(), makePreview(w.Text), w.Text})
	}
	return frags
}

func chatFragments(uc *models.UserContext) []fragment {
	frags := make([]fragment, 0, len(uc.ChatMessages))
	for _, m := range uc.ChatMessages {
		frags = append(frags, fragment{"chat_messages", m.ID.Hex(), makePreview(m.Content), m.Content})
	}
	return frags
}

func noteFragments(uc *models.UserContext) []fragment {
	frags := make([]fragment, 0, len(uc.ClinicalNotes))
	for _, n := range uc.ClinicalNotes {
		frags = append(frags, fragment{"clinical_notes", n.ID.Hex(), makePreview(n.Content), n.Content})
	}
	return frags
}

// copingFragments surfaces the user's preferred strategies and the
// techniques practiced in sessions.
func copingFragments(uc *models.UserContext) []fragment {
	frags := []fragment{}
	if uc.Preferences != nil {
		for i, strategy := range uc.Preferences.CopingStrategies {
			frags = append(frags, fragment{
				"user_preferences",
				fmt.Sprintf("coping_strategy_%d", i),
				"Preferred coping strategy: " + strategy,
				"Preferred coping strategy: " + strategy,
			})
		}
	}
	seen := make(map[string]bool)
	for _, s := range uc.Sessions {
		for _, technique := range s.Techniques {
			if technique == "" || seen[technique] {
				continue
			}
			seen[technique] = true
			frags = append(frags, fragment{
				"therapy_sessions",
				s.ID.Hex(),
				"Technique practiced in session: " + technique,
				fmt.Sprintf("Technique practiced in session on %s: %s", s.SessionDate.Format("Jan 2"), technique),
			})
		}
	}
	return frags
}

// makePreview truncates content to a human-scannable single line. The cut
// happens on a rune boundary so multi-byte content survives intact.
func makePreview(content string) string {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	runes := []rune(content)
	if len(runes) > 120 {
		return string(runes[:117]) + "..."
	}
	return content
}
