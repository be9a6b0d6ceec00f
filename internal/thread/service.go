package thread

import (
	"context"
	"errors"
	"strings"

	"github.com/datawise/explore-assistant/internal/common"
)

// Service is the aggregate-root logic over users, threads, messages and
// feedback. It enforces the invariants the relational schema alone cannot:
// the allocate/finalize state machine, visibility of internal messages, and
// one-feedback-per-message. Storage failures propagate verbatim; nothing here
// retries.
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetOrCreateUser records a user on first successful login. The created flag
// reports whether a row was inserted.
func (s *Service) GetOrCreateUser(ctx context.Context, userID, name, email string) (*User, bool, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	u = &User{UserID: userID, Name: name, Email: email}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *Service) CreateThread(ctx context.Context, userID, exploreKey, modelName, exploreID string) (*Thread, error) {
	tid, err := common.NewULID()
	if err != nil {
		return nil, &StorageError{Message: "failed to allocate thread id", Details: err.Error()}
	}
	t := &Thread{
		ThreadID:   tid,
		UserID:     userID,
		ExploreKey: exploreKey,
		ModelName:  modelName,
		ExploreID:  exploreID,
		PromptList: PromptList{},
	}
	if err := s.repo.CreateThread(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	return s.repo.GetThread(ctx, threadID)
}

// AllocateParams carries the caller-known fields of a message before
// generation runs.
type AllocateParams struct {
	ThreadID   string
	UserID     string
	Actor      string
	Contents   string
	PromptType string
	RawPrompt  string
	Parameters string
	Message    string
}

// AllocateMessage inserts a pending row and returns its id, so a client can
// show an optimistic entry and later reconcile it via FinalizeMessage without
// risking duplicate rows under retry.
func (s *Service) AllocateMessage(ctx context.Context, p AllocateParams) (string, error) {
	m := &Message{
		MessageID:  common.NewUUID(),
		ThreadID:   p.ThreadID,
		UserID:     p.UserID,
		Actor:      p.Actor,
		Type:       TypeText,
		Message:    p.Message,
		PromptType: p.PromptType,
		Contents:   p.Contents,
		RawPrompt:  p.RawPrompt,
		Parameters: p.Parameters,
		Status:     StatusPending,
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return "", err
	}
	return m.MessageID, nil
}

func (s *Service) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	return s.repo.GetMessage(ctx, messageID)
}

// FinalizeParams carries the generation results filled into a pending row.
type FinalizeParams struct {
	Type        string
	Message     string
	ExploreURL  string
	Summary     string
	LLMResponse string
}

// FinalizeMessage transitions a pending message to finalized. Concurrent
// finalize calls on the same id are not deduplicated; the second caller gets
// ErrAlreadyFinalized.
func (s *Service) FinalizeMessage(ctx context.Context, messageID string, p FinalizeParams) (*Message, error) {
	if p.Type == "" {
		p.Type = TypeText
	}
	fields := map[string]any{
		"type":         p.Type,
		"message":      p.Message,
		"explore_url":  p.ExploreURL,
		"summary":      p.Summary,
		"llm_response": p.LLMResponse,
	}
	return s.repo.FinalizeMessage(ctx, messageID, fields)
}

// messageUpdateFields is the set of columns /message/update may touch.
// Anything else in the caller's map is a validation error, not a silent
// drop. status is deliberately absent: the pending→finalized transition only
// happens through FinalizeMessage, never through a raw field write.
var messageUpdateFields = map[string]string{
	"actor":        "actor",
	"type":         "type",
	"message":      "message",
	"explore_url":  "explore_url",
	"summary":      "summary",
	"prompt_type":  "prompt_type",
	"contents":     "contents",
	"raw_prompt":   "raw_prompt",
	"parameters":   "parameters",
	"llm_response": "llm_response",
}

// UnknownFieldError reports a field name outside messageUpdateFields.
type UnknownFieldError struct{ Field string }

func (e *UnknownFieldError) Error() string { return "unknown update field: " + e.Field }

func (s *Service) UpdateMessage(ctx context.Context, messageID string, fields map[string]any) (*Message, error) {
	cols := make(map[string]any, len(fields))
	for k, v := range fields {
		col, ok := messageUpdateFields[k]
		if !ok {
			return nil, &UnknownFieldError{Field: k}
		}
		cols[col] = v
	}
	if len(cols) == 0 {
		return nil, &UnknownFieldError{Field: "(none)"}
	}
	return s.repo.UpdateMessage(ctx, messageID, cols)
}

// RecordTurn refreshes the thread-level rollups after a finalized user turn:
// the rolling title, the ordered prompt history and the cached explore URL.
func (s *Service) RecordTurn(ctx context.Context, threadID, summarizedPrompt, rawPrompt, exploreURL string) error {
	return s.repo.RecordTurn(ctx, threadID, summarizedPrompt, rawPrompt, exploreURL)
}

func (s *Service) ListUserThreads(ctx context.Context, userID string, limit, offset int) ([]Thread, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListThreads(ctx, userID, limit, offset)
}

func (s *Service) ListThreadMessages(ctx context.Context, threadID string, limit, offset int) ([]Message, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListVisibleMessages(ctx, threadID, limit, offset)
}

func (s *Service) SoftDeleteThreads(ctx context.Context, userID string, threadIDs []string) (int64, error) {
	if len(threadIDs) == 0 {
		return 0, nil
	}
	return s.repo.SoftDeleteThreads(ctx, userID, threadIDs)
}

// MatchedMessage is one message within a search hit, flagged when its
// content itself matched the query.
type MatchedMessage struct {
	Message
	Matched bool `json:"matched"`
}

// ThreadMatch is one thread in a search result carrying its own messages.
// Non-matching messages are kept to preserve conversational context.
type ThreadMatch struct {
	Thread
	Messages []MatchedMessage `json:"messages"`
}

// SearchResult groups matches by thread. Total counts distinct matching
// threads regardless of the page window.
type SearchResult struct {
	Total   int64         `json:"total"`
	Matches []ThreadMatch `json:"matches"`
}

// Search finds the user's non-deleted threads with a case-insensitive
// substring match of query in some displayable message.
func (s *Service) Search(ctx context.Context, userID, query string, limit, offset int) (*SearchResult, error) {
	limit, offset = clampPage(limit, offset)

	ids, total, err := s.repo.SearchThreadIDs(ctx, userID, query, limit, offset)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]ThreadMatch, 0, len(ids))
	for _, id := range ids {
		t, err := s.repo.GetThread(ctx, id)
		if err != nil {
			return nil, err
		}
		msgs, _, err := s.repo.ListVisibleMessages(ctx, id, 100, 0)
		if err != nil {
			return nil, err
		}
		mm := make([]MatchedMessage, 0, len(msgs))
		for _, m := range msgs {
			mm = append(mm, MatchedMessage{
				Message: m,
				Matched: strings.Contains(strings.ToLower(m.Message), needle),
			})
		}
		matches = append(matches, ThreadMatch{Thread: *t, Messages: mm})
	}

	return &SearchResult{Total: total, Matches: matches}, nil
}

// AddFeedback inserts feedback for a message and links the message back to
// it. A second feedback for the same message fails on the unique index.
func (s *Service) AddFeedback(ctx context.Context, userID, messageID, text string, isPositive bool) (*Feedback, error) {
	if _, err := s.repo.GetMessage(ctx, messageID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &StorageError{
				Message: "failed to submit feedback",
				Details: "message not found: " + messageID,
			}
		}
		return nil, err
	}

	fb := &Feedback{
		UserID:       userID,
		MessageID:    messageID,
		FeedbackText: text,
		IsPositive:   isPositive,
	}
	if err := s.repo.AddFeedback(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}
