package thread

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Actor tags who authored a message.
const (
	ActorUser   = "user"
	ActorSystem = "system"
)

// Rendering types describe what a client should display for a message.
// TypeNone marks internal multi-step scratch invocations that are never
// returned from history views.
const (
	TypeText       = "text"
	TypeExploreURL = "exploreUrl"
	TypeSummary    = "summarize"
	TypeNone       = "none"
)

// Message lifecycle for the two-phase allocate/finalize protocol.
const (
	StatusPending   = "pending"
	StatusFinalized = "finalized"
)

// Prompt kinds understood by the generation layer.
const (
	PromptLooker    = "looker"
	PromptGeneral   = "general"
	PromptSummarize = "summarize"
)

type User struct {
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// PromptList is the serialized ordered list of historical prompt strings on a
// thread. It is stored as a JSON text column; NULL reads back as an empty
// list.
type PromptList []string

func (p PromptList) Value() (driver.Value, error) {
	if p == nil {
		p = PromptList{}
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *PromptList) Scan(src any) error {
	if src == nil {
		*p = PromptList{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("prompt list: unsupported column type %T", src)
	}
	if len(b) == 0 {
		*p = PromptList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("prompt list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*p = out
	return nil
}

type Thread struct {
	ThreadID string `gorm:"primaryKey;type:varchar(26)" json:"thread_id"`
	UserID   string `gorm:"type:varchar(64);index;not null" json:"user_id"`

	ExploreKey string `gorm:"type:varchar(255);not null" json:"explore_key"`
	ModelName  string `gorm:"type:varchar(128)" json:"model_name,omitempty"`
	ExploreID  string `gorm:"type:varchar(128)" json:"explore_id,omitempty"`

	// Cached rendered query URL for the most recent turn.
	ExploreURL string `gorm:"type:text" json:"explore_url,omitempty"`

	// Rolling human-readable title, overwritten on every new user turn.
	SummarizedPrompt string     `gorm:"type:text" json:"summarized_prompt"`
	PromptList       PromptList `gorm:"type:text" json:"prompt_list"`

	IsDeleted bool      `gorm:"index;not null;default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Thread) TableName() string { return "threads" }

type Message struct {
	MessageID string `gorm:"primaryKey;type:varchar(36)" json:"message_id"`
	ThreadID  string `gorm:"type:varchar(26);index;not null" json:"thread_id"`
	UserID    string `gorm:"type:varchar(64);index;not null" json:"user_id"`

	Actor string `gorm:"type:varchar(16);not null" json:"actor"`
	Type  string `gorm:"type:varchar(16);index;not null;default:text" json:"type"`

	// Display content, by rendering type.
	Message    string `gorm:"type:text" json:"message"`
	ExploreURL string `gorm:"type:text" json:"explore_url,omitempty"`
	Summary    string `gorm:"type:text" json:"summary,omitempty"`

	// Bookkeeping for the generation call behind this row.
	PromptType  string `gorm:"type:varchar(32)" json:"prompt_type,omitempty"`
	Contents    string `gorm:"type:text" json:"contents,omitempty"`
	RawPrompt   string `gorm:"type:text" json:"raw_prompt,omitempty"`
	Parameters  string `gorm:"type:text" json:"parameters,omitempty"`
	LLMResponse string `gorm:"type:text" json:"llm_response,omitempty"`

	Status     string    `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	FeedbackID *uint64   `gorm:"index" json:"feedback_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }

type Feedback struct {
	FeedbackID   uint64    `gorm:"primaryKey;autoIncrement" json:"feedback_id"`
	UserID       string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	MessageID    string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"message_id"`
	FeedbackText string    `gorm:"type:text;not null" json:"feedback_text"`
	IsPositive   bool      `gorm:"not null" json:"is_positive"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Feedback) TableName() string { return "feedbacks" }
