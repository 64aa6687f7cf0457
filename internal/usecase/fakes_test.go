package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
)

type fakeSession struct {
	mu         sync.Mutex
	connected  bool
	user       string
	failWith   error
	generation uint64
}

func (s *fakeSession) Connect(_ context.Context, user, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.connected, s.user = true, user
	s.generation++
	return nil
}

func (s *fakeSession) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return entities.ErrNotConnected
	}
	s.connected, s.user = false, ""
	s.generation++
	return nil
}

func (s *fakeSession) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *fakeSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// fakeCandidateRepo эмулирует таблицу кандидатов и внешние процедуры
type fakeCandidateRepo struct {
	mu         sync.Mutex
	rows       map[int64]entities.CandidateStatus
	approved   [][]int64
	rejected   [][]int64
	analyses   []bool
	executions int
	listCalls  int

	approveErr  error
	executeErr  error
	analysisErr error
	// gate блокирует RunAnalysis до закрытия, started закрывается при входе
	gate    chan struct{}
	started chan struct{}
}

func newFakeCandidateRepo(rows map[int64]entities.CandidateStatus) *fakeCandidateRepo {
	if rows == nil {
		rows = make(map[int64]entities.CandidateStatus)
	}
	return &fakeCandidateRepo{rows: rows}
}

func (r *fakeCandidateRepo) ListActive(_ context.Context) ([]entities.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++

	var out []entities.Candidate
	for id, st := range r.rows {
		if st == entities.StatusPending || st == entities.StatusApproved {
			out = append(out, entities.Candidate{ID: id, Name: "OBJ", Status: st})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCandidateRepo) Approve(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.approveErr != nil {
		return r.approveErr
	}
	r.approved = append(r.approved, ids)
	for _, id := range ids {
		r.rows[id] = entities.StatusApproved
	}
	return nil
}

func (r *fakeCandidateRepo) Reject(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, ids)
	for _, id := range ids {
		r.rows[id] = entities.StatusRejected
	}
	return nil
}

func (r *fakeCandidateRepo) ExecuteApproved(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions++
	if r.executeErr != nil {
		return r.executeErr
	}
	for id, st := range r.rows {
		if st == entities.StatusApproved {
			r.rows[id] = entities.StatusExecuted
		}
	}
	return nil
}

func (r *fakeCandidateRepo) RunAnalysis(ctx context.Context, autoApprove bool) error {
	if r.started != nil {
		close(r.started)
	}
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, autoApprove)
	if r.analysisErr != nil {
		return r.analysisErr
	}

	status := entities.StatusPending
	if autoApprove {
		status = entities.StatusApproved
	}
	r.rows[int64(100+len(r.analyses))] = status
	return nil
}

func (r *fakeCandidateRepo) status(id int64) entities.CandidateStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

// fakeConfigRepo применяет пакет к копии и публикует ее только при успехе
type fakeConfigRepo struct {
	mu      sync.Mutex
	entries []entities.ConfigEntry
	failOn  string
	actors  []string
}

func (r *fakeConfigRepo) List(_ context.Context) ([]entities.ConfigEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.ConfigEntry(nil), r.entries...), nil
}

func (r *fakeConfigRepo) SaveAll(_ context.Context, batch []entities.ConfigEntry, actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors = append(r.actors, actor)

	next := append([]entities.ConfigEntry(nil), r.entries...)
	for _, b := range batch {
		if b.Name == r.failOn {
			return errors.New("update config " + b.Name + ": check constraint violated")
		}
		for i := range next {
			if next[i].Name == b.Name {
				next[i].Value = b.Value
			}
		}
	}
	r.entries = next
	return nil
}

func (r *fakeConfigRepo) persisted() []entities.ConfigEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.ConfigEntry(nil), r.entries...)
}

type fakeInfoRepo struct {
	mu    sync.Mutex
	info  entities.DatabaseInfo
	calls int
}

func (r *fakeInfoRepo) DatabaseInfo(_ context.Context) (entities.DatabaseInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.info, nil
}

type fakeReportRepo struct {
	lines []string
	block bool
}

func (r *fakeReportRepo) GenerateReport(ctx context.Context, daysBack int) (*entities.Report, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &entities.Report{DaysBack: daysBack, Lines: r.lines}, nil
}

// harness собирает компоненты вокруг запущенного координатора
type harness struct {
	session    *fakeSession
	candRepo   *fakeCandidateRepo
	configRepo *fakeConfigRepo
	infoRepo   *fakeInfoRepo
	reportRepo *fakeReportRepo

	coord      *Coordinator
	runner     *Runner
	candidates *CandidateStore
	config     *ConfigStore
	dashboard  *Dashboard
	analysis   *AnalysisOrchestrator
	cleanup    *CleanupExecutor
	reports    *ReportStreamer
	sessions   *SessionManager
}

func newHarness(t *testing.T, rows map[int64]entities.CandidateStatus) *harness {
	t.Helper()

	logger := zap.NewNop()
	h := &harness{
		session:    &fakeSession{connected: true, user: "janitor"},
		candRepo:   newFakeCandidateRepo(rows),
		configRepo: &fakeConfigRepo{},
		infoRepo:   &fakeInfoRepo{info: entities.DatabaseInfo{Name: "warehouse", SizeBytes: 1 << 30}},
		reportRepo: &fakeReportRepo{},
	}

	h.coord = NewCoordinator(logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h.runner = NewRunner(context.Background(), h.coord, 5*time.Second, time.Minute, logger)
	h.candidates = NewCandidateStore(h.candRepo, h.session, h.runner, h.coord, logger)
	h.config = NewConfigStore(h.configRepo, h.session, h.runner, h.coord, logger)
	h.dashboard = NewDashboard(h.infoRepo, h.session, h.runner, h.coord, logger)
	h.analysis = NewAnalysisOrchestrator(h.candRepo, h.session, h.candidates, h.dashboard, h.runner, logger)
	h.cleanup = NewCleanupExecutor(h.candRepo, h.session, h.candidates, h.dashboard, h.runner, logger)
	h.reports = NewReportStreamer(h.reportRepo, h.session, h.runner, 200*time.Millisecond, logger)
	h.sessions = NewSessionManager(h.session, h.candidates, h.config, h.dashboard, h.runner, h.coord, logger)

	return h
}

// wait дожидается завершения задачи
func (h *harness) wait(t *testing.T, taskID string) *entities.TaskResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := h.runner.Wait(ctx, taskID)
	require.NoError(t, err)
	return res
}

// refresh загружает снимок кандидатов и ждет завершения
func (h *harness) refresh(t *testing.T) {
	t.Helper()

	id, err := h.candidates.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, entities.TaskCompleted, h.wait(t, id).Status)
}

func (h *harness) snapshot(t *testing.T) map[int64]entities.CandidateStatus {
	t.Helper()

	list, err := h.candidates.List(context.Background())
	require.NoError(t, err)

	out := make(map[int64]entities.CandidateStatus, len(list))
	for _, c := range list {
		out[c.ID] = c.Status
	}
	return out
}
