package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/services/mailinglist"
)

type outboxRepository struct {
	db core.DB
}

var _ mailinglist.Outbox = (*outboxRepository)(nil) // interface compliance check

func NewOutboxRepository(db core.DB) mailinglist.Outbox {
	return &outboxRepository{db: db}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (repo *outboxRepository) Enqueue(ctx context.Context, email string, cause error) error {
	now := time.Now().UTC()
	_, err := exec(ctx, repo.db,
		"INSERT INTO mailing_list_outbox (email, attempts, last_error, created_at, updated_at) VALUES (?, 1, ?, ?, ?) "+
			"ON CONFLICT (email) DO UPDATE SET attempts = mailing_list_outbox.attempts + 1, last_error = ?, updated_at = ?",
		email, errText(cause), now, now, errText(cause), now)
	return errors.Wrap(err, "enqueuing mailing list entry")
}

func (repo *outboxRepository) Pending(ctx context.Context, maxAttempts, limit int) ([]mailinglist.Entry, error) {
	entries := []mailinglist.Entry{}
	err := selectAll(ctx, repo.db, &entries,
		"SELECT email, attempts, last_error, created_at, updated_at FROM mailing_list_outbox "+
			"WHERE attempts < ? ORDER BY updated_at LIMIT ?", maxAttempts, limit)
	return entries, errors.Wrap(err, "querying mailing list outbox")
}

func (repo *outboxRepository) Remove(ctx context.Context, email string) error {
	_, err := exec(ctx, repo.db, "DELETE FROM mailing_list_outbox WHERE email = ?", email)
	return errors.Wrap(err, "removing mailing list entry")
}
