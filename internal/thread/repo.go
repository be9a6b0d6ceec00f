package thread

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo owns all reads and writes against the relational store. Every error
// leaving this type is either ErrNotFound or a *StorageError.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateUser(ctx context.Context, u *User) error {
	return storageErr("create_user", r.db.WithContext(ctx).Create(u).Error)
}

func (r *Repo) GetUser(ctx context.Context, userID string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "user_id = ?", userID).Error; err != nil {
		return nil, storageErr("get_user", err)
	}
	return &u, nil
}

func (r *Repo) CreateThread(ctx context.Context, t *Thread) error {
	return storageErr("create_thread", r.db.WithContext(ctx).Create(t).Error)
}

// GetThread loads a thread by id, including soft-deleted rows. Listings and
// search exclude them; direct lookup does not.
func (r *Repo) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	var t Thread
	if err := r.db.WithContext(ctx).First(&t, "thread_id = ?", threadID).Error; err != nil {
		return nil, storageErr("get_thread", err)
	}
	return &t, nil
}

// RecordTurn applies the post-turn thread rollups (rolling title, appended
// prompt history, cached explore url) in one transaction, so concurrent
// finalizes on the same thread cannot drop a prompt-list entry. On MySQL the
// read takes a row lock; sqlite allows a single writer at a time.
func (r *Repo) RecordTurn(ctx context.Context, threadID, summarizedPrompt, rawPrompt, exploreURL string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "mysql" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var t Thread
		if err := q.First(&t, "thread_id = ?", threadID).Error; err != nil {
			return err
		}

		fields := map[string]any{}
		if summarizedPrompt != "" {
			fields["summarized_prompt"] = summarizedPrompt
		}
		if rawPrompt != "" {
			fields["prompt_list"] = append(t.PromptList, rawPrompt)
		}
		if exploreURL != "" {
			fields["explore_url"] = exploreURL
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&Thread{}).
			Where("thread_id = ?", threadID).
			Updates(fields).Error
	})
	return storageErr("record_turn", err)
}

// ListThreads returns a user's non-deleted threads newest-first, plus the
// total non-deleted count independent of the page window.
func (r *Repo) ListThreads(ctx context.Context, userID string, limit, offset int) ([]Thread, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Thread{}).
			Where("user_id = ? AND is_deleted = ?", userID, false)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, storageErr("list_threads", err)
	}

	var threads []Thread
	if err := base().
		Order("created_at DESC, thread_id DESC").
		Limit(limit).
		Offset(offset).
		Find(&threads).Error; err != nil {
		return nil, 0, storageErr("list_threads", err)
	}
	return threads, total, nil
}

// SoftDeleteThreads marks the given threads deleted, scoped to the owner.
// Already-deleted ids do not count toward the affected total.
func (r *Repo) SoftDeleteThreads(ctx context.Context, userID string, threadIDs []string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Thread{}).
		Where("user_id = ? AND thread_id IN ? AND is_deleted = ?", userID, threadIDs, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return 0, storageErr("soft_delete_threads", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return storageErr("insert_message", r.db.WithContext(ctx).Create(m).Error)
}

func (r *Repo) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).First(&m, "message_id = ?", messageID).Error; err != nil {
		return nil, storageErr("get_message", err)
	}
	return &m, nil
}

// FinalizeMessage fills in the generation-result fields of a pending message.
// The status guard in the WHERE clause makes double-finalize detectable
// instead of silently overwriting the first result.
func (r *Repo) FinalizeMessage(ctx context.Context, messageID string, fields map[string]any) (*Message, error) {
	fields["status"] = StatusFinalized
	res := r.db.WithContext(ctx).Model(&Message{}).
		Where("message_id = ? AND status = ?", messageID, StatusPending).
		Updates(fields)
	if res.Error != nil {
		return nil, storageErr("finalize_message", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing row from a lost status race.
		if _, err := r.GetMessage(ctx, messageID); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyFinalized
	}
	return r.GetMessage(ctx, messageID)
}

// UpdateMessage applies a caller-supplied field map without the status guard.
// The handler layer restricts which fields may appear here.
func (r *Repo) UpdateMessage(ctx context.Context, messageID string, fields map[string]any) (*Message, error) {
	res := r.db.WithContext(ctx).Model(&Message{}).
		Where("message_id = ?", messageID).
		Updates(fields)
	if res.Error != nil {
		return nil, storageErr("update_message", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetMessage(ctx, messageID)
}

// ListVisibleMessages returns a thread's displayable messages newest-first.
// Rows with rendering type "none" are internal scratch turns and are never
// returned here, though they still count in raw storage.
func (r *Repo) ListVisibleMessages(ctx context.Context, threadID string, limit, offset int) ([]Message, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Message{}).
			Where("thread_id = ? AND type <> ?", threadID, TypeNone)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, storageErr("list_messages", err)
	}

	var msgs []Message
	if err := base().
		Order("created_at DESC, message_id DESC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error; err != nil {
		return nil, 0, storageErr("list_messages", err)
	}
	return msgs, total, nil
}

// likeEscaper neutralizes LIKE metacharacters so query text matches
// literally. The escape character is '!' because a backslash literal is not
// portable between the sqlite and mysql parsers.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchThreadIDs returns ids of the user's non-deleted threads containing a
// case-insensitive substring match in some message, newest-first, plus the
// total distinct matching-thread count independent of the page window.
func (r *Repo) SearchThreadIDs(ctx context.Context, userID, query string, limit, offset int) ([]string, int64, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	join := func() *gorm.DB {
		return r.db.WithContext(ctx).Table("threads").
			Joins("JOIN messages ON messages.thread_id = threads.thread_id").
			Where("threads.user_id = ? AND threads.is_deleted = ?", userID, false).
			Where("messages.type <> ?", TypeNone).
			Where("LOWER(messages.message) LIKE ? ESCAPE '!'", pattern)
	}

	var total int64
	if err := join().Distinct("threads.thread_id").Count(&total).Error; err != nil {
		return nil, 0, storageErr("search_threads", err)
	}

	type row struct {
		ThreadID string
	}
	var rows []row
	if err := join().
		Select("threads.thread_id, threads.created_at").
		Distinct().
		Order("threads.created_at DESC, threads.thread_id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error; err != nil {
		return nil, 0, storageErr("search_threads", err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ThreadID)
	}
	return ids, total, nil
}

// AddFeedback inserts feedback and links it onto the target message inside
// one transaction; a partial write is never observable.
func (r *Repo) AddFeedback(ctx context.Context, fb *Feedback) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fb).Error; err != nil {
			return err
		}
		res := tx.Model(&Message{}).
			Where("message_id = ?", fb.MessageID).
			Update("feedback_id", fb.FeedbackID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return storageErr("add_feedback", err)
	}
	return nil
}
