package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/erdidoqan/postrella/internal/domain"
)

var outputColumns = []string{
	"id", "job_id", "topic_id", "target", "title", "body", "metadata", "version", "status", "created_at", "updated_at",
}

var publishColumns = []string{
	"id", "output_id", "platform", "account_id", "status", "remote_id", "remote_url",
	"scheduled_at", "published_at", "error", "retry_count", "created_at",
}

var accountColumns = []string{
	"id", "platform", "username", "access_token", "refresh_token", "instance_url", "expires_at", "is_active",
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

func scanOutput(row rowScanner) (domain.ContentOutput, error) {
	var (
		o     domain.ContentOutput
		jobID sql.NullInt64
		meta  []byte
	)
	if err := row.Scan(&o.ID, &jobID, &o.TopicID, &o.Target, &o.Title, &o.Body, &meta,
		&o.Version, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.ContentOutput{}, err
	}
	o.JobID = nullInt(jobID)
	m, err := domain.DecodeMetadata(meta)
	if err != nil {
		return domain.ContentOutput{}, fmt.Errorf("decode output %d metadata: %w", o.ID, err)
	}
	o.Metadata = m
	return o, nil
}

func scanPublish(row rowScanner) (domain.Publish, error) {
	var (
		p         domain.Publish
		accountID sql.NullInt64
		scheduled sql.NullTime
		published sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.OutputID, &p.Platform, &accountID, &p.Status, &p.RemoteID, &p.RemoteURL,
		&scheduled, &published, &p.Error, &p.RetryCount, &p.CreatedAt); err != nil {
		return domain.Publish{}, err
	}
	p.AccountID = nullInt(accountID)
	p.ScheduledAt = nullTime(scheduled)
	p.PublishedAt = nullTime(published)
	return p, nil
}

func (s *PostgresStore) OutputExists(ctx context.Context, topicID int64, target string) (bool, error) {
	row, err := s.queryRow(ctx, s.sb.Select("1").From("content_outputs").
		Where(sq.Eq{"topic_id": topicID, "target": target}).Limit(1))
	if err != nil {
		return false, err
	}
	var one int
	switch err := row.Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check output: %w", err)
	}
	return true, nil
}

// InsertOutput relies on the (topic_id, target) constraint. A conflicting
// insert returns no row and is reported as domain.ErrOutputExists.
func (s *PostgresStore) InsertOutput(ctx context.Context, o domain.ContentOutput) (domain.ContentOutput, error) {
	meta, err := domain.EncodeMetadata(o.Metadata)
	if err != nil {
		return domain.ContentOutput{}, err
	}
	if o.Status == "" {
		o.Status = domain.OutputDraft
	}
	if o.Version == 0 {
		o.Version = 1
	}
	row, err := s.queryRow(ctx, s.sb.Insert("content_outputs").
		Columns("job_id", "topic_id", "target", "title", "body", "metadata", "version", "status").
		Values(o.JobID, o.TopicID, o.Target, o.Title, o.Body, string(meta), o.Version, string(o.Status)).
		Suffix("ON CONFLICT (topic_id, target) DO NOTHING RETURNING "+joinColumns(outputColumns)))
	if err != nil {
		return domain.ContentOutput{}, err
	}
	created, err := scanOutput(row)
	switch {
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		return domain.ContentOutput{}, domain.ErrOutputExists
	case err != nil:
		return domain.ContentOutput{}, fmt.Errorf("insert output: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetOutput(ctx context.Context, id int64) (domain.ContentOutput, error) {
	row, err := s.queryRow(ctx, s.sb.Select(outputColumns...).From("content_outputs").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.ContentOutput{}, err
	}
	o, err := scanOutput(row)
	if err != nil {
		return domain.ContentOutput{}, notFound(err)
	}
	return o, nil
}

func (s *PostgresStore) ListOutputs(ctx context.Context, topicID int64) ([]domain.ContentOutput, error) {
	rows, err := s.query(ctx, s.sb.Select(outputColumns...).From("content_outputs").
		Where(sq.Eq{"topic_id": topicID}).OrderBy("id ASC"))
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	defer rows.Close()

	var out []domain.ContentOutput
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateOutputMetadata(ctx context.Context, id int64, metadata domain.OutputMetadata) error {
	meta, err := domain.EncodeMetadata(metadata)
	if err != nil {
		return err
	}
	n, err := s.exec(ctx, s.sb.Update("content_outputs").
		Set("metadata", string(meta)).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update output %d metadata: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TransitionOutput(ctx context.Context, id int64, to domain.OutputStatus) error {
	from := sources(allOutputStatuses, to, domain.OutputStatus.CanTransition)
	n, err := s.exec(ctx, s.sb.Update("content_outputs").
		Set("status", string(to)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("status = ANY(?)", pq.Array(from))))
	if err != nil {
		return fmt.Errorf("transition output %d: %w", id, err)
	}
	if n == 0 {
		if _, err := s.GetOutput(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (s *PostgresStore) InsertPublish(ctx context.Context, p domain.Publish) (domain.Publish, error) {
	if p.Status == "" {
		p.Status = domain.PublishPending
	}
	row, err := s.queryRow(ctx, s.sb.Insert("publishes").
		Columns("output_id", "platform", "account_id", "status", "remote_id", "remote_url",
			"scheduled_at", "published_at", "error").
		Values(p.OutputID, p.Platform, p.AccountID, string(p.Status), p.RemoteID, p.RemoteURL,
			p.ScheduledAt, p.PublishedAt, p.Error).
		Suffix("RETURNING "+joinColumns(publishColumns)))
	if err != nil {
		return domain.Publish{}, err
	}
	created, err := scanPublish(row)
	if err != nil {
		return domain.Publish{}, fmt.Errorf("insert publish: %w", err)
	}
	return created, nil
}

// SettlePublish writes the outcome of a pending record exactly once.
func (s *PostgresStore) SettlePublish(ctx context.Context, p domain.Publish) error {
	if !domain.PublishPending.CanTransition(p.Status) {
		return domain.ErrInvalidTransition
	}
	retry := 0
	if p.Status == domain.PublishFailed {
		retry = 1
	}
	n, err := s.exec(ctx, s.sb.Update("publishes").
		Set("status", string(p.Status)).
		Set("remote_id", p.RemoteID).
		Set("remote_url", p.RemoteURL).
		Set("published_at", p.PublishedAt).
		Set("error", p.Error).
		Set("retry_count", sq.Expr("retry_count + ?", retry)).
		Where(sq.Eq{"id": p.ID, "status": string(domain.PublishPending)}))
	if err != nil {
		return fmt.Errorf("settle publish %d: %w", p.ID, err)
	}
	if n == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (s *PostgresStore) DuePublishes(ctx context.Context, now time.Time, limit int) ([]domain.Publish, error) {
	q := s.sb.Select(publishColumns...).From("publishes").
		Where(sq.Eq{"status": string(domain.PublishPending)}).
		Where(sq.NotEq{"scheduled_at": nil}).
		Where(sq.LtOrEq{"scheduled_at": now}).
		OrderBy("scheduled_at ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.listPublishes(ctx, q)
}

func (s *PostgresStore) ListPublishes(ctx context.Context, outputID int64) ([]domain.Publish, error) {
	return s.listPublishes(ctx, s.sb.Select(publishColumns...).From("publishes").
		Where(sq.Eq{"output_id": outputID}).OrderBy("id ASC"))
}

func (s *PostgresStore) listPublishes(ctx context.Context, q sq.SelectBuilder) ([]domain.Publish, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select publishes: %w", err)
	}
	defer rows.Close()

	var out []domain.Publish
	for rows.Next() {
		p, err := scanPublish(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActiveAccount(ctx context.Context, platform string) (domain.Account, error) {
	row, err := s.queryRow(ctx, s.sb.Select(accountColumns...).From("accounts").
		Where(sq.Eq{"platform": platform, "is_active": true}).
		OrderBy("id ASC").Limit(1))
	if err != nil {
		return domain.Account{}, err
	}
	var (
		a       domain.Account
		expires sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Platform, &a.Username, &a.AccessToken, &a.RefreshToken,
		&a.InstanceURL, &expires, &a.Active); err != nil {
		return domain.Account{}, notFound(err)
	}
	a.ExpiresAt = nullTime(expires)
	return a, nil
}

// UpdateAccountTokens keeps the stored refresh token when none is supplied.
func (s *PostgresStore) UpdateAccountTokens(ctx context.Context, id int64, creds domain.Credentials) error {
	n, err := s.exec(ctx, s.sb.Update("accounts").
		Set("access_token", creds.AccessToken).
		Set("refresh_token", sq.Expr("COALESCE(NULLIF(?, ''), refresh_token)", creds.RefreshToken)).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update account %d tokens: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.query(ctx, s.sb.Select("key", "value").From("settings"))
	if err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
