package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/erdidoqan/postrella/internal/domain"
)

var topicColumns = []string{
	"id", "keyword", "source", "locale", "score", "metadata", "status", "fetched_at", "updated_at",
}

var jobColumns = []string{
	"id", "topic_id", "targets", "status", "attempts", "max_attempts", "error",
	"created_at", "started_at", "completed_at",
}

func scanTopic(row rowScanner) (domain.Topic, error) {
	var (
		t    domain.Topic
		meta []byte
	)
	if err := row.Scan(&t.ID, &t.Keyword, &t.Source, &t.Locale, &t.Score, &meta, &t.Status, &t.FetchedAt, &t.UpdatedAt); err != nil {
		return domain.Topic{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return domain.Topic{}, fmt.Errorf("decode topic %d metadata: %w", t.ID, err)
		}
	}
	return t, nil
}

func scanJob(row rowScanner) (domain.ContentJob, error) {
	var (
		j         domain.ContentJob
		targets   pq.StringArray
		started   sql.NullTime
		completed sql.NullTime
	)
	if err := row.Scan(&j.ID, &j.TopicID, &targets, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Error,
		&j.CreatedAt, &started, &completed); err != nil {
		return domain.ContentJob{}, err
	}
	j.Targets = []string(targets)
	j.StartedAt = nullTime(started)
	j.CompletedAt = nullTime(completed)
	return j, nil
}

// PendingTopics orders by trend score, newest first on ties.
func (s *PostgresStore) PendingTopics(ctx context.Context, limit int) ([]domain.Topic, error) {
	q := s.sb.Select(topicColumns...).
		From("topics").
		Where(sq.Eq{"status": string(domain.TopicPending)}).
		OrderBy("score DESC", "fetched_at DESC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select pending topics: %w", err)
	}
	defer rows.Close()

	var out []domain.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetTopic(ctx context.Context, id int64) (domain.Topic, error) {
	row, err := s.queryRow(ctx, s.sb.Select(topicColumns...).From("topics").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Topic{}, err
	}
	t, err := scanTopic(row)
	if err != nil {
		return domain.Topic{}, notFound(err)
	}
	return t, nil
}

// TransitionTopic updates only rows whose current status may move to the
// target, so concurrent writers can never move a topic backwards.
func (s *PostgresStore) TransitionTopic(ctx context.Context, id int64, to domain.TopicStatus) error {
	from := sources(allTopicStatuses, to, domain.TopicStatus.CanTransition)
	n, err := s.exec(ctx, s.sb.Update("topics").
		Set("status", string(to)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("status = ANY(?)", pq.Array(from))))
	if err != nil {
		return fmt.Errorf("transition topic %d: %w", id, err)
	}
	if n == 0 {
		if _, err := s.GetTopic(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (s *PostgresStore) SaveTopicStrategy(ctx context.Context, id int64, strategy domain.Strategy) error {
	raw, err := json.Marshal(strategy)
	if err != nil {
		return fmt.Errorf("encode strategy: %w", err)
	}
	n, err := s.exec(ctx, s.sb.Update("topics").
		Set("metadata", sq.Expr("jsonb_set(metadata, '{strategy}', ?::jsonb)", string(raw))).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("save topic %d strategy: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job domain.ContentJob) (domain.ContentJob, error) {
	if job.Status == "" {
		job.Status = domain.JobPending
	}
	targets := pq.StringArray(job.Targets)
	if targets == nil {
		targets = pq.StringArray{}
	}
	row, err := s.queryRow(ctx, s.sb.Insert("content_jobs").
		Columns("topic_id", "targets", "status", "max_attempts").
		Values(job.TopicID, targets, string(job.Status), job.MaxAttempts).
		Suffix("RETURNING "+joinColumns(jobColumns)))
	if err != nil {
		return domain.ContentJob{}, err
	}
	created, err := scanJob(row)
	if err != nil {
		return domain.ContentJob{}, fmt.Errorf("insert job: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (domain.ContentJob, error) {
	row, err := s.queryRow(ctx, s.sb.Select(jobColumns...).From("content_jobs").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.ContentJob{}, err
	}
	j, err := scanJob(row)
	if err != nil {
		return domain.ContentJob{}, notFound(err)
	}
	return j, nil
}

func (s *PostgresStore) PendingJobs(ctx context.Context, limit int) ([]domain.ContentJob, error) {
	q := s.sb.Select(jobColumns...).
		From("content_jobs").
		Where(sq.Eq{"status": string(domain.JobPending)}).
		Where("attempts < max_attempts").
		OrderBy("created_at ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select pending jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.ContentJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// StartJob claims a pending job. The status guard makes concurrent claims of
// the same job fail for all but one caller.
func (s *PostgresStore) StartJob(ctx context.Context, id int64, at time.Time) (domain.ContentJob, error) {
	row, err := s.queryRow(ctx, s.sb.Update("content_jobs").
		Set("status", string(domain.JobRunning)).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("started_at", at).
		Set("error", "").
		Where(sq.Eq{"id": id, "status": string(domain.JobPending)}).
		Suffix("RETURNING "+joinColumns(jobColumns)))
	if err != nil {
		return domain.ContentJob{}, err
	}
	j, err := scanJob(row)
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.ContentJob{}, fmt.Errorf("start job %d: %w", id, err)
	}
	if _, err := s.GetJob(ctx, id); err != nil {
		return domain.ContentJob{}, err
	}
	return domain.ContentJob{}, domain.ErrInvalidTransition
}

func (s *PostgresStore) FinishJob(ctx context.Context, id int64, status domain.JobStatus, errText string, at time.Time) error {
	if !domain.JobRunning.CanTransition(status) {
		return domain.ErrInvalidTransition
	}
	n, err := s.exec(ctx, s.sb.Update("content_jobs").
		Set("status", string(status)).
		Set("error", errText).
		Set("completed_at", at).
		Where(sq.Eq{"id": id, "status": string(domain.JobRunning)}))
	if err != nil {
		return fmt.Errorf("finish job %d: %w", id, err)
	}
	if n == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (s *PostgresStore) RequeueJob(ctx context.Context, id int64) error {
	n, err := s.exec(ctx, s.sb.Update("content_jobs").
		Set("status", string(domain.JobPending)).
		Set("completed_at", nil).
		Where(sq.Eq{"id": id, "status": string(domain.JobFailed)}).
		Where("attempts < max_attempts"))
	if err != nil {
		return fmt.Errorf("requeue job %d: %w", id, err)
	}
	if n > 0 {
		return nil
	}
	j, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if j.Status == domain.JobFailed && j.Exhausted() {
		return domain.ErrAttemptsExhausted
	}
	return domain.ErrInvalidTransition
}
