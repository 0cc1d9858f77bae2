package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Kind selects which AI artifact table a cache operation targets
type Kind string

const (
	KindSummary Kind = "summary"
	KindReply   Kind = "reply"
)

func (k Kind) table() (table, column string, err error) {
	switch k {
	case KindSummary:
		return "ai_summaries", "summary", nil
	case KindReply:
		return "ai_replies", "reply", nil
	default:
		return "", "", fmt.Errorf("unknown cache kind %q", k)
	}
}

// CacheStore persists AI summaries and suggested replies per (account, message)
type CacheStore struct {
	db *sql.DB
}

// NewCacheStore creates a new cache store from a base store
func NewCacheStore(store *Store) *CacheStore {
	if store == nil {
		return nil
	}
	return &CacheStore{db: store.DB()}
}

var errNotInitialized = errors.New("cache store not initialized")

// Save upserts the artifact for (accountEmail, messageID)
func (cs *CacheStore) Save(ctx context.Context, kind Kind, accountEmail, messageID, text string, updatedAt int64) error {
	if cs == nil || cs.db == nil {
		return errNotInitialized
	}
	if strings.TrimSpace(accountEmail) == "" || strings.TrimSpace(messageID) == "" || strings.TrimSpace(text) == "" {
		return fmt.Errorf("invalid %s inputs", kind)
	}
	table, column, err := kind.table()
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s(account_email, message_id, %s, updated_at)
VALUES(?,?,?,?)
ON CONFLICT(account_email, message_id) DO UPDATE SET %s=excluded.%s, updated_at=excluded.updated_at;`,
		table, column, column, column)
	_, err = cs.db.ExecContext(ctx, q, accountEmail, messageID, text, updatedAt)
	return err
}

// Load returns the cached artifact if present
func (cs *CacheStore) Load(ctx context.Context, kind Kind, accountEmail, messageID string) (string, bool, error) {
	if cs == nil || cs.db == nil {
		return "", false, errNotInitialized
	}
	table, column, err := kind.table()
	if err != nil {
		return "", false, err
	}
	var out string
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE account_email=? AND message_id=?`, column, table)
	err = cs.db.QueryRowContext(ctx, q, accountEmail, messageID).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

// Delete removes the cached artifact for (accountEmail, messageID)
func (cs *CacheStore) Delete(ctx context.Context, kind Kind, accountEmail, messageID string) error {
	if cs == nil || cs.db == nil {
		return errNotInitialized
	}
	table, _, err := kind.table()
	if err != nil {
		return err
	}
	_, err = cs.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE account_email=? AND message_id=?`, table), accountEmail, messageID)
	return err
}

// Forget drops every artifact cached for a message. Used after it is trashed.
func (cs *CacheStore) Forget(ctx context.Context, accountEmail, messageID string) error {
	for _, k := range []Kind{KindSummary, KindReply} {
		if err := cs.Delete(ctx, k, accountEmail, messageID); err != nil {
			return err
		}
	}
	return nil
}
