package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/repository"
)

// ── Mock ChildRepository ──

type mockChildRepo struct {
	children  map[string]*model.Child
	schedules *mockScheduleRepo
	nextID    int

	createErr   error
	getByIDsErr error
	listErr     error
}

func newMockChildRepo() *mockChildRepo {
	return &mockChildRepo{children: make(map[string]*model.Child)}
}

func (m *mockChildRepo) CreateWithSchedule(_ context.Context, child *model.Child, entries []model.ScheduleEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	child.ChildID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.nextID)
	child.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	child.Version = 1
	m.children[child.ChildID] = child
	for i := range entries {
		entries[i].ChildID = child.ChildID
	}
	m.schedules.put(child.ChildID, entries)
	return nil
}

func (m *mockChildRepo) add(id, first, last, email string, birth model.Date) *model.Child {
	c := &model.Child{ChildID: id, FirstName: first, LastName: last, ContactEmail: email, BirthDate: birth}
	c.Version = 1
	m.children[id] = c
	return c
}

func (m *mockChildRepo) GetByID(_ context.Context, id string) (*model.Child, error) {
	if c, ok := m.children[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChildRepo) GetByIDs(_ context.Context, ids []string) ([]model.Child, error) {
	if m.getByIDsErr != nil {
		return nil, m.getByIDsErr
	}
	var out []model.Child
	for _, id := range ids {
		if c, ok := m.children[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockChildRepo) GetBirthDate(_ context.Context, id string) (model.Date, error) {
	if c, ok := m.children[id]; ok {
		return c.BirthDate, nil
	}
	return model.Date{}, gorm.ErrRecordNotFound
}

func (m *mockChildRepo) ListIDs(_ context.Context, offset, limit int) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]string, 0, len(m.children))
	for id := range m.children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if offset >= len(ids) {
		return []string{}, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end], nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	mu       sync.Mutex
	entries  map[string]map[string]model.ScheduleEntry
	children *mockChildRepo

	saveErr    error
	replaceErr error
	listDueErr error
}

func newMockScheduleRepo(children *mockChildRepo) *mockScheduleRepo {
	return &mockScheduleRepo{entries: make(map[string]map[string]model.ScheduleEntry), children: children}
}

func (m *mockScheduleRepo) put(childID string, entries []model.ScheduleEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make(map[string]model.ScheduleEntry, len(entries))
	for _, e := range entries {
		e.ChildID = childID
		rows[e.VaccineCode] = e
	}
	m.entries[childID] = rows
}

func (m *mockScheduleRepo) Save(_ context.Context, childID string, entries []model.ScheduleEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.children.children[childID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.put(childID, entries)
	return nil
}

func (m *mockScheduleRepo) Replace(_ context.Context, childID string, birthDate model.Date, entries []model.ScheduleEntry) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	c, ok := m.children.children[childID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.BirthDate = birthDate
	c.Version++
	m.put(childID, entries)
	return nil
}

func (m *mockScheduleRepo) ListByChild(_ context.Context, childID string) ([]model.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ScheduleEntry, 0, len(m.entries[childID]))
	for _, e := range m.entries[childID] {
		out = append(out, e)
	}
	// map 迭代无序，按代码排序避免测试依赖顺序
	sort.Slice(out, func(i, j int) bool { return out[i].VaccineCode < out[j].VaccineCode })
	return out, nil
}

func (m *mockScheduleRepo) ListDueOn(_ context.Context, target model.Date) ([]model.DueMatch, error) {
	if m.listDueErr != nil {
		return nil, m.listDueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DueMatch
	for childID, rows := range m.entries {
		for _, e := range rows {
			if e.DueDate.Equal(target) {
				out = append(out, model.DueMatch{ChildID: childID, VaccineCode: e.VaccineCode, DueDate: e.DueDate})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu      sync.Mutex
	records map[string]*model.Notification
	nextID  int
	now     time.Time

	// failKeys 指定三元组写入失败
	failKeys  map[string]bool
	existsErr error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{
		records:  make(map[string]*model.Notification),
		failKeys: make(map[string]bool),
		now:      time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC),
	}
}

func (m *mockNotificationRepo) CreateIfAbsent(_ context.Context, n *model.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := model.DueMatch{ChildID: n.ChildID, VaccineCode: n.VaccineCode, DueDate: n.DueDate}.Key()
	if m.failKeys[key] {
		return false, fmt.Errorf("insert %s: connection reset", key)
	}
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	m.nextID++
	n.NotificationID = fmt.Sprintf("n-%04d", m.nextID)
	// 每条记录递增一秒，便于校验倒序
	n.CreatedAt = m.now.Add(time.Duration(m.nextID) * time.Second)
	stored := *n
	m.records[key] = &stored
	return true, nil
}

func (m *mockNotificationRepo) Exists(_ context.Context, match model.DueMatch) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[match.Key()]
	return ok, nil
}

func (m *mockNotificationRepo) ListByChild(_ context.Context, childID string, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for _, n := range m.records {
		if n.ChildID == childID {
			all = append(all, *n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].NotificationID > all[j].NotificationID
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Notification{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// ── Mock ScanRunRepository ──

type mockScanRunRepo struct {
	mu       sync.Mutex
	runs     map[string]*model.ScanRun
	claimErr error
	finished int
}

func newMockScanRunRepo() *mockScanRunRepo {
	return &mockScanRunRepo{runs: make(map[string]*model.ScanRun)}
}

func (m *mockScanRunRepo) Claim(_ context.Context, run *model.ScanRun, staleBefore time.Time, force bool) (repository.ClaimOutcome, error) {
	if m.claimErr != nil {
		return repository.ClaimInProgress, m.claimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	run.Status = model.ScanStatusRunning
	key := run.ScanDate.String()
	existing, ok := m.runs[key]
	if !ok {
		stored := *run
		m.runs[key] = &stored
		return repository.ClaimAcquired, nil
	}
	switch {
	case existing.IsCompleted() && !force:
		*run = *existing
		return repository.ClaimAlreadyCompleted, nil
	case existing.Status == model.ScanStatusRunning && existing.StartedAt.After(staleBefore):
		*run = *existing
		return repository.ClaimInProgress, nil
	}
	stored := *run
	m.runs[key] = &stored
	return repository.ClaimAcquired, nil
}

func (m *mockScanRunRepo) Finish(_ context.Context, run *model.ScanRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *run
	m.runs[run.ScanDate.String()] = &stored
	m.finished++
	return nil
}

func (m *mockScanRunRepo) Get(_ context.Context, scanDate model.Date) (*model.ScanRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[scanDate.String()]; ok {
		out := *r
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScanRunRepo) ListRecent(_ context.Context, limit int) ([]model.ScanRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScanRun
	for _, r := range m.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScanDate.After(out[j].ScanDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Mock Locker ──

type mockLocker struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	released int
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]string)}
}

func (m *mockLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", false, nil
	}
	m.held[key] = "token-" + key
	return m.held[key], true, nil
}

func (m *mockLocker) ReleaseLock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
		m.released++
	}
	return nil
}

// ── 测试装配 ──

type testStore struct {
	children      *mockChildRepo
	schedules     *mockScheduleRepo
	notifications *mockNotificationRepo
	scanRuns      *mockScanRunRepo
	repo          *repository.Repository
}

func newTestStore() *testStore {
	children := newMockChildRepo()
	schedules := newMockScheduleRepo(children)
	children.schedules = schedules
	notifications := newMockNotificationRepo()
	scanRuns := newMockScanRunRepo()
	return &testStore{
		children:      children,
		schedules:     schedules,
		notifications: notifications,
		scanRuns:      scanRuns,
		repo: &repository.Repository{
			Child:        children,
			Schedule:     schedules,
			Notification: notifications,
			ScanRun:      scanRuns,
		},
	}
}

var errStoreDown = fmt.Errorf("dial tcp 127.0.0.1:5432: connection refused")
