package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/internal/modules/knowledge/domain/repository"
	"OmniAgent/pkg/xerr"
)

var errStoreDown = errors.New("store down")

type memVectorStore struct {
	mu     sync.Mutex
	points map[string]entity.Point

	failUpsert      bool
	failScroll      bool
	failDelete      bool
	failDeleteByIDs bool
	failCount       bool
	upserts         int
	counts          int

	// 测试钩子，在持锁之外调用
	onScroll     func(limit int)
	beforeUpsert func()
	onUpsert     func()
}

func newMemVectorStore() *memVectorStore {
	return &memVectorStore{points: map[string]entity.Point{}}
}

func (m *memVectorStore) Collection() string { return "test_collection" }

func (m *memVectorStore) Upsert(_ context.Context, points []entity.Point) error {
	if m.beforeUpsert != nil {
		m.beforeUpsert()
	}
	if m.onUpsert != nil {
		defer m.onUpsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert {
		return errStoreDown
	}
	m.upserts++
	for _, p := range points {
		m.points[p.Id] = p
	}
	return nil
}

func (m *memVectorStore) Scroll(_ context.Context, filter repository.Filter, limit int) ([]entity.Point, error) {
	if m.onScroll != nil {
		m.onScroll(limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failScroll {
		return nil, errStoreDown
	}
	out := []entity.Point{}
	for _, p := range m.points {
		if matches(p, filter) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memVectorStore) Count(_ context.Context, filter repository.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts++
	if m.failCount {
		return 0, errStoreDown
	}
	n := 0
	for _, p := range m.points {
		if matches(p, filter) {
			n++
		}
	}
	return n, nil
}

func (m *memVectorStore) Delete(_ context.Context, filter repository.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errStoreDown
	}
	for id, p := range m.points {
		if matches(p, filter) {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *memVectorStore) DeleteByIDs(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeleteByIDs {
		return errStoreDown
	}
	for _, id := range ids {
		delete(m.points, id)
	}
	return nil
}

func (m *memVectorStore) count(userID, sourceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.points {
		if matches(p, repository.SourceFilter(userID, sourceID)) {
			n++
		}
	}
	return n
}

func matches(p entity.Point, filter repository.Filter) bool {
	for _, f := range filter {
		var v string
		switch f.Key {
		case entity.FieldUserID:
			v = p.UserId
		case entity.FieldSourceID:
			v = p.SourceId
		default:
			return false
		}
		if v != f.Value {
			return false
		}
	}
	return true
}

type memSourceRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]entity.UserSource

	failFind   bool
	failCreate bool
	failUpdate bool
	failDelete bool

	onFind func()
}

func newMemSourceRepo() *memSourceRepo {
	return &memSourceRepo{rows: map[int64]entity.UserSource{}}
}

func (r *memSourceRepo) FindOne(_ context.Context, userID, sourceID, title string) (*entity.UserSource, error) {
	if r.onFind != nil {
		r.onFind()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind {
		return nil, errStoreDown
	}
	for _, row := range r.rows {
		if row.UserId == userID && row.SourceId == sourceID && (title == "" || row.SourceTitle == title) {
			cp := row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSourceRepo) FindByTitle(_ context.Context, userID, title string) (*entity.UserSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind {
		return nil, errStoreDown
	}
	for _, row := range r.rows {
		if row.UserId == userID && row.SourceTitle == title {
			cp := row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSourceRepo) ListByUser(_ context.Context, userID string, sourceType entity.SourceType) ([]entity.UserSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind {
		return nil, errStoreDown
	}
	out := []entity.UserSource{}
	for _, row := range r.rows {
		if row.UserId == userID && (sourceType == "" || row.SourceType == sourceType) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (r *memSourceRepo) Create(_ context.Context, src *entity.UserSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errStoreDown
	}
	for _, row := range r.rows {
		if row.UserId == src.UserId && row.SourceId == src.SourceId {
			return xerr.Wrap(xerr.KindConflict, "create source: duplicate key", repository.ErrDuplicate)
		}
	}
	r.nextID++
	src.Id = r.nextID
	now := time.Now()
	src.CreatedAt, src.UpdatedAt = now, now
	r.rows[src.Id] = *src
	return nil
}

func (r *memSourceRepo) Update(_ context.Context, src *entity.UserSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return errStoreDown
	}
	if _, ok := r.rows[src.Id]; !ok {
		return errors.New("row not found")
	}
	src.UpdatedAt = time.Now()
	r.rows[src.Id] = *src
	return nil
}

func (r *memSourceRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete {
		return errStoreDown
	}
	delete(r.rows, id)
	return nil
}

// seed 直接写入一行，绕过失败开关
func (r *memSourceRepo) seed(row entity.UserSource) entity.UserSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row.Id = r.nextID
	r.rows[row.Id] = row
	return row
}

func (r *memSourceRepo) get(userID, sourceID string) (entity.UserSource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserId == userID && row.SourceId == sourceID {
			return row, true
		}
	}
	return entity.UserSource{}, false
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.SourceEvent
	err    error
}

func (p *recordingPublisher) PublishSourceEvent(_ context.Context, evt entity.SourceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) Lock(context.Context, string) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errStoreDown
}
