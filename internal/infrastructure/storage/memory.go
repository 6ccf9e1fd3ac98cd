package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/ports"
)

type outputKey struct {
	topicID int64
	target  string
}

// MemoryStore keeps every row in process. It enforces the same
// (topic, target) uniqueness and status rules as the Postgres schema.
type MemoryStore struct {
	mu sync.Mutex

	seq       int64
	topics    map[int64]domain.Topic
	jobs      map[int64]domain.ContentJob
	outputs   map[int64]domain.ContentOutput
	outputIdx map[outputKey]int64
	publishes map[int64]domain.Publish
	accounts  map[int64]domain.Account
	settings  map[string]string
	now       func() time.Time
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topics:    map[int64]domain.Topic{},
		jobs:      map[int64]domain.ContentJob{},
		outputs:   map[int64]domain.ContentOutput{},
		outputIdx: map[outputKey]int64{},
		publishes: map[int64]domain.Publish{},
		accounts:  map[int64]domain.Account{},
		settings:  map[string]string{},
		now:       time.Now,
	}
}

// cloneMetadata copies metadata through its stored form so callers never
// share pointers with the store.
func cloneMetadata(meta domain.OutputMetadata) domain.OutputMetadata {
	raw, err := domain.EncodeMetadata(meta)
	if err != nil {
		return meta
	}
	out, err := domain.DecodeMetadata(raw)
	if err != nil {
		return meta
	}
	return out
}

func (m *MemoryStore) nextID() int64 {
	m.seq++
	return m.seq
}

// AddTopic seeds a topic, as trend ingestion would.
func (m *MemoryStore) AddTopic(t domain.Topic) domain.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.nextID()
	}
	if t.Status == "" {
		t.Status = domain.TopicPending
	}
	if t.FetchedAt.IsZero() {
		t.FetchedAt = m.now()
	}
	m.topics[t.ID] = t
	return t
}

// AddAccount seeds a connected account.
func (m *MemoryStore) AddAccount(a domain.Account) domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.nextID()
	}
	m.accounts[a.ID] = a
	return a
}

// PutSetting stores a key/value setting.
func (m *MemoryStore) PutSetting(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
}

func (m *MemoryStore) PendingTopics(_ context.Context, limit int) ([]domain.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Topic
	for _, t := range m.topics {
		if t.Status == domain.TopicPending {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].FetchedAt.Equal(out[j].FetchedAt) {
			return out[i].FetchedAt.After(out[j].FetchedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetTopic(_ context.Context, id int64) (domain.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[id]
	if !ok {
		return domain.Topic{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) TransitionTopic(_ context.Context, id int64, to domain.TopicStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !t.Status.CanTransition(to) {
		return domain.ErrInvalidTransition
	}
	t.Status = to
	t.UpdatedAt = m.now()
	m.topics[id] = t
	return nil
}

func (m *MemoryStore) SaveTopicStrategy(_ context.Context, id int64, strategy domain.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[id]
	if !ok {
		return domain.ErrNotFound
	}
	s := strategy
	t.Metadata.Strategy = &s
	m.topics[id] = t
	return nil
}

func (m *MemoryStore) CreateJob(_ context.Context, job domain.ContentJob) (domain.ContentJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topics[job.TopicID]; !ok {
		return domain.ContentJob{}, domain.ErrNotFound
	}
	job.ID = m.nextID()
	if job.Status == "" {
		job.Status = domain.JobPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = m.now()
	}
	job.Targets = append([]string(nil), job.Targets...)
	m.jobs[job.ID] = job
	return job, nil
}

func (m *MemoryStore) GetJob(_ context.Context, id int64) (domain.ContentJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ContentJob{}, domain.ErrNotFound
	}
	return j, nil
}

func (m *MemoryStore) PendingJobs(_ context.Context, limit int) ([]domain.ContentJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.ContentJob
	for _, j := range m.jobs {
		if j.Status == domain.JobPending && !j.Exhausted() {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.Before(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) StartJob(_ context.Context, id int64, at time.Time) (domain.ContentJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ContentJob{}, domain.ErrNotFound
	}
	if !j.Status.CanTransition(domain.JobRunning) {
		return domain.ContentJob{}, domain.ErrInvalidTransition
	}
	j.Status = domain.JobRunning
	j.Attempts++
	j.StartedAt = &at
	j.Error = ""
	m.jobs[id] = j
	return j, nil
}

func (m *MemoryStore) FinishJob(_ context.Context, id int64, status domain.JobStatus, errText string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !j.Status.CanTransition(status) {
		return domain.ErrInvalidTransition
	}
	j.Status = status
	j.Error = errText
	j.CompletedAt = &at
	m.jobs[id] = j
	return nil
}

func (m *MemoryStore) RequeueJob(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != domain.JobFailed {
		return domain.ErrInvalidTransition
	}
	if j.Exhausted() {
		return domain.ErrAttemptsExhausted
	}
	j.Status = domain.JobPending
	j.CompletedAt = nil
	m.jobs[id] = j
	return nil
}

func (m *MemoryStore) OutputExists(_ context.Context, topicID int64, target string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.outputIdx[outputKey{topicID, target}]
	return ok, nil
}

func (m *MemoryStore) InsertOutput(_ context.Context, o domain.ContentOutput) (domain.ContentOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := outputKey{o.TopicID, o.Target}
	if _, ok := m.outputIdx[key]; ok {
		return domain.ContentOutput{}, domain.ErrOutputExists
	}
	o.ID = m.nextID()
	if o.Version == 0 {
		o.Version = 1
	}
	if o.Status == "" {
		o.Status = domain.OutputDraft
	}
	o.CreatedAt = m.now()
	o.UpdatedAt = o.CreatedAt
	o.Metadata = cloneMetadata(o.Metadata)
	m.outputs[o.ID] = o
	m.outputIdx[key] = o.ID
	return o, nil
}

func (m *MemoryStore) GetOutput(_ context.Context, id int64) (domain.ContentOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outputs[id]
	if !ok {
		return domain.ContentOutput{}, domain.ErrNotFound
	}
	o.Metadata = cloneMetadata(o.Metadata)
	return o, nil
}

func (m *MemoryStore) ListOutputs(_ context.Context, topicID int64) ([]domain.ContentOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ContentOutput
	for _, o := range m.outputs {
		if o.TopicID == topicID {
			o.Metadata = cloneMetadata(o.Metadata)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateOutputMetadata(_ context.Context, id int64, metadata domain.OutputMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outputs[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Metadata = cloneMetadata(metadata)
	o.Version++
	o.UpdatedAt = m.now()
	m.outputs[id] = o
	return nil
}

func (m *MemoryStore) TransitionOutput(_ context.Context, id int64, to domain.OutputStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outputs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !o.Status.CanTransition(to) {
		return domain.ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = m.now()
	m.outputs[id] = o
	return nil
}

func (m *MemoryStore) InsertPublish(_ context.Context, p domain.Publish) (domain.Publish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.outputs[p.OutputID]; !ok {
		return domain.Publish{}, domain.ErrNotFound
	}
	p.ID = m.nextID()
	p.CreatedAt = m.now()
	m.publishes[p.ID] = p
	return p, nil
}

func (m *MemoryStore) SettlePublish(_ context.Context, p domain.Publish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.publishes[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !stored.Status.CanTransition(p.Status) {
		return domain.ErrInvalidTransition
	}
	stored.Status = p.Status
	stored.RemoteID = p.RemoteID
	stored.RemoteURL = p.RemoteURL
	stored.PublishedAt = p.PublishedAt
	stored.Error = p.Error
	if p.Status == domain.PublishFailed {
		stored.RetryCount++
	}
	m.publishes[p.ID] = stored
	return nil
}

func (m *MemoryStore) DuePublishes(_ context.Context, now time.Time, limit int) ([]domain.Publish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Publish
	for _, p := range m.publishes {
		if p.ScheduledAt != nil && p.Due(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListPublishes(_ context.Context, outputID int64) ([]domain.Publish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Publish
	for _, p := range m.publishes {
		if p.OutputID == outputID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ActiveAccount(_ context.Context, platform string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *domain.Account
	for _, a := range m.accounts {
		if a.Platform == platform && a.Active && (found == nil || a.ID < found.ID) {
			acc := a
			found = &acc
		}
	}
	if found == nil {
		return domain.Account{}, domain.ErrNotFound
	}
	return *found, nil
}

func (m *MemoryStore) UpdateAccountTokens(_ context.Context, id int64, creds domain.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.AccessToken = creds.AccessToken
	if creds.RefreshToken != "" {
		a.RefreshToken = creds.RefreshToken
	}
	m.accounts[id] = a
	return nil
}

func (m *MemoryStore) LoadSettings(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}
