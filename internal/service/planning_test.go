package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/planning/internal/config"
	"github.com/paiban/planning/internal/repository"
	"github.com/paiban/planning/pkg/daycombo"
	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/model"
	"github.com/paiban/planning/pkg/planning"
	"github.com/paiban/planning/pkg/validator"
)

const (
	testUnit    = int64(1)
	testTranche = int64(10)
)

// fakeStore 内存实现的 Store
type fakeStore struct {
	needs       []model.Need
	agents      []model.Agent
	agentDays   []model.AgentDay
	tranches    map[int64]model.Tranche
	assignments []model.Assignment
	segments    map[int64][]model.ShiftSegment
	err         error

	mu   sync.Mutex
	runs []*repository.SolveRun
}

func (f *fakeStore) ListNeeds(ctx context.Context, dr repository.DateRange) ([]model.Need, error) {
	return f.needs, f.err
}

func (f *fakeStore) ListAgents(ctx context.Context) ([]model.Agent, error) {
	return f.agents, f.err
}

func (f *fakeStore) ListAgentDays(ctx context.Context, dr repository.DateRange) ([]model.AgentDay, error) {
	return f.agentDays, f.err
}

func (f *fakeStore) ListTranches(ctx context.Context) (map[int64]model.Tranche, error) {
	return f.tranches, f.err
}

func (f *fakeStore) ListAssignments(ctx context.Context, dr repository.DateRange) ([]model.Assignment, error) {
	return f.assignments, f.err
}

func (f *fakeStore) ListSegments(ctx context.Context, unitID int64) ([]model.ShiftSegment, error) {
	return f.segments[unitID], f.err
}

func (f *fakeStore) ListUnitIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.segments))
	for id := range f.segments {
		ids = append(ids, id)
	}
	return ids, f.err
}

func (f *fakeStore) SaveSolveRun(ctx context.Context, run *repository.SolveRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

// fakeComboCache 记录读写次数的组合目录缓存
type fakeComboCache struct {
	mu   sync.Mutex
	data map[string]*daycombo.Catalogue
	gets int
	sets int
}

func (c *fakeComboCache) Get(ctx context.Context, unitID int64, fingerprint string) (*daycombo.Catalogue, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	cat, ok := c.data[fmt.Sprintf("%d:%s", unitID, fingerprint)]
	return cat, ok, nil
}

func (c *fakeComboCache) Set(ctx context.Context, cat *daycombo.Catalogue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.data == nil {
		c.data = make(map[string]*daycombo.Catalogue)
	}
	c.data[fmt.Sprintf("%d:%s", cat.UnitID, cat.Fingerprint)] = cat
	return nil
}

func testConfig() (config.SolverConfig, config.DayComboConfig) {
	solver := config.SolverConfig{TimeLimit: 10 * time.Second, MaxTimeLimit: time.Minute, Workers: 1, MaxConsecutiveDays: 6}
	combo := config.DayComboConfig{
		MaxWork: 600, MaxNightWork: 480, MaxAmplitude: 780, MinRest: 660, MinNightRest: 720, MaxSize: 3,
		MaxSubsets: 1 << 18, MaxCombinations: 1024, MemoSize: 16,
	}
	return solver, combo
}

func agent(id int64) model.Agent {
	return model.Agent{ID: id, Qualifications: []model.Qualification{{UnitID: testUnit}}}
}

// repairStore 两日各需 1 人，基线均为人员 1，人员 1 第一天请假
func repairStore() *fakeStore {
	return &fakeStore{
		needs: []model.Need{
			{UnitID: testUnit, Date: "2026-03-02", TrancheID: testTranche, RequiredCount: 1},
			{UnitID: testUnit, Date: "2026-03-03", TrancheID: testTranche, RequiredCount: 1},
		},
		agents:    []model.Agent{agent(1), agent(2)},
		agentDays: []model.AgentDay{{AgentID: 1, Date: "2026-03-02", Type: model.DayLeave}},
		tranches:  map[int64]model.Tranche{testTranche: {ID: testTranche, UnitID: testUnit}},
		assignments: []model.Assignment{
			{AgentID: 1, TrancheID: testTranche, Date: "2026-03-02"},
			{AgentID: 1, TrancheID: testTranche, Date: "2026-03-03"},
		},
	}
}

func TestSolveRange_Repair(t *testing.T) {
	store := repairStore()
	solverCfg, comboCfg := testConfig()
	svc := New(store, nil, solverCfg, comboCfg)

	out, err := svc.SolveRange(context.Background(), SolveRequest{
		Mode:      planning.ModeRepair,
		StartDate: "2026-03-02",
		EndDate:   "2026-03-03",
	})
	require.NoError(t, err)

	assert.Equal(t, planning.StatusOptimal, out.Solution.Status)
	assert.Empty(t, out.Solution.Uncovered)
	assert.Equal(t, []planning.Assignment{{AgentID: 2, SlotID: 0}, {AgentID: 1, SlotID: 1}}, out.Solution.Assignments)
	assert.Equal(t, 1, out.Modifications)
	assert.Equal(t, out.Modifications, out.Solution.TotalChanges())
	require.Len(t, out.Diffs, 1)
	assert.Equal(t, []int64{1}, out.Diffs[0].Removed)
	assert.Equal(t, []int64{2}, out.Diffs[0].Added)
	assert.Empty(t, out.Conflicts)
	assert.InDelta(t, 100.0, out.Coverage.OverallCoverage, 0.001)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.Equal(t, out.RunID, run.ID)
	assert.Equal(t, "REPAIR", run.Mode)
	assert.Equal(t, "OPTIMAL", run.Status)
	assert.Equal(t, 2, run.SlotCount)
	assert.Equal(t, 1, run.ChangeCount)
}

func TestSolveRange_Errors(t *testing.T) {
	solverCfg, comboCfg := testConfig()

	t.Run("日期倒序", func(t *testing.T) {
		svc := New(repairStore(), nil, solverCfg, comboCfg)
		_, err := svc.SolveRange(context.Background(), SolveRequest{Mode: planning.ModePlan, StartDate: "2026-03-03", EndDate: "2026-03-02"})
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTimeRange), "got %v", err)
	})

	t.Run("存储错误透传", func(t *testing.T) {
		store := repairStore()
		store.err = errors.New("连接断开")
		svc := New(store, nil, solverCfg, comboCfg)
		_, err := svc.SolveRange(context.Background(), SolveRequest{Mode: planning.ModePlan, StartDate: "2026-03-02", EndDate: "2026-03-03"})
		assert.ErrorIs(t, err, store.err)
	})

	t.Run("未配置存储", func(t *testing.T) {
		svc := New(nil, nil, solverCfg, comboCfg)
		_, err := svc.SolveRange(context.Background(), SolveRequest{Mode: planning.ModePlan, StartDate: "2026-03-02", EndDate: "2026-03-03"})
		assert.True(t, apperrors.Is(err, apperrors.CodeInternal), "got %v", err)
	})

	t.Run("时段未关联岗位", func(t *testing.T) {
		store := repairStore()
		store.tranches = map[int64]model.Tranche{testTranche: {ID: testTranche}}
		svc := New(store, nil, solverCfg, comboCfg)
		_, err := svc.SolveRange(context.Background(), SolveRequest{Mode: planning.ModeRepair, StartDate: "2026-03-02", EndDate: "2026-03-03"})
		assert.True(t, apperrors.Is(err, apperrors.CodeDataIntegrity), "got %v", err)
		assert.Empty(t, store.runs)
	})
}

func TestSolveInput(t *testing.T) {
	solverCfg, comboCfg := testConfig()
	svc := New(nil, nil, solverCfg, comboCfg)
	in := planning.InstanceInput{
		Mode: planning.ModePlan,
		Needs: []model.Need{
			{UnitID: testUnit, Date: "2026-03-02", TrancheID: testTranche, RequiredCount: 2},
		},
		Agents: []model.Agent{agent(1)},
	}

	out, err := svc.SolveInput(context.Background(), in, SolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, planning.StatusOptimal, out.Solution.Status)
	assert.Len(t, out.Solution.Uncovered, 1)
	require.Len(t, out.Shortages, 1)
	assert.Equal(t, 1, out.Shortages[0].Shortage)
	assert.NotNil(t, out.Conflicts)

	t.Run("锁定不存在的时槽", func(t *testing.T) {
		bad := in
		bad.HardLocks = map[int]int64{5: 1}
		_, err := svc.SolveInput(context.Background(), bad, SolveOptions{})
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidLock), "got %v", err)
	})

	t.Run("调用方已取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.SolveInput(ctx, in, SolveOptions{})
		assert.True(t, apperrors.Is(err, apperrors.CodeCanceled), "got %v", err)
	})
}

func TestParams(t *testing.T) {
	solverCfg, comboCfg := testConfig()
	svc := New(nil, nil, solverCfg, comboCfg)

	p := svc.Params(SolveOptions{})
	assert.Equal(t, 10*time.Second, p.TimeLimit)
	assert.Equal(t, 1, p.Workers)
	assert.Equal(t, 6, p.MaxConsecutiveDays)

	k, seed := 0, int64(9)
	p = svc.Params(SolveOptions{TimeLimit: time.Second, Workers: 3, MaxConsecutiveDays: &k, Seed: &seed})
	assert.Equal(t, time.Second, p.TimeLimit)
	assert.Equal(t, 3, p.Workers)
	assert.Equal(t, 0, p.MaxConsecutiveDays)
	assert.Equal(t, int64(9), p.Seed)

	// 请求时长不超过配置的最长求解时间
	p = svc.Params(SolveOptions{TimeLimit: 10 * time.Minute})
	assert.Equal(t, time.Minute, p.TimeLimit)
}

func comboSegments(unitID int64) []model.ShiftSegment {
	return []model.ShiftSegment{
		{ID: 1, UnitID: unitID, StartMinute: 8 * 60, EndMinute: 12 * 60},
		{ID: 2, UnitID: unitID, StartMinute: 13 * 60, EndMinute: 17 * 60},
		{ID: 3, UnitID: unitID, StartMinute: 22 * 60, EndMinute: 6 * 60},
	}
}

func TestDayCombos(t *testing.T) {
	store := &fakeStore{segments: map[int64][]model.ShiftSegment{
		1: comboSegments(1),
		2: comboSegments(2),
	}}
	cache := &fakeComboCache{}
	solverCfg, comboCfg := testConfig()
	svc := New(store, cache, solverCfg, comboCfg)

	cats, err := svc.DayCombos(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	for unitID, cat := range cats {
		assert.Equal(t, unitID, cat.UnitID)
		assert.Len(t, cat.Combinations, 2)
	}
	assert.Equal(t, 2, cache.sets)

	// 第二次命中进程内缓存，不再访问共享缓存
	_, err = svc.DayCombos(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 2, cache.sets)

	// 新进程从共享缓存读取
	other := New(store, cache, solverCfg, comboCfg)
	_, err = other.DayCombos(context.Background(), []int64{2})
	require.NoError(t, err)
	assert.Equal(t, 3, cache.gets)
	assert.Equal(t, 2, cache.sets)
}

// shortSegments 返回 n 个互不重叠的 55 分钟班段
func shortSegments(unitID int64, n int) []model.ShiftSegment {
	segs := make([]model.ShiftSegment, n)
	for i := range segs {
		start := 6*60 + i*60
		segs[i] = model.ShiftSegment{ID: int64(i + 1), UnitID: unitID, StartMinute: start, EndMinute: start + 55}
	}
	return segs
}

func TestDayCombos_Memo(t *testing.T) {
	store := &fakeStore{segments: map[int64][]model.ShiftSegment{
		1: comboSegments(1),
		2: comboSegments(2),
	}}
	solverCfg, comboCfg := testConfig()
	comboCfg.MemoSize = 1
	svc := New(store, nil, solverCfg, comboCfg)

	cats, err := svc.DayCombos(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, 1, svc.memo.Len(), "进程内缓存超过容量时淘汰最早条目")

	store.segments[3] = shortSegments(3, 16)
	comboCfg.MaxSize = 6
	big := New(store, nil, solverCfg, comboCfg)
	_, err = big.DayCombos(context.Background(), []int64{3})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput), "got %v", err)
	assert.Equal(t, 0, big.memo.Len())
}

func TestAnalyzeSegments(t *testing.T) {
	solverCfg, comboCfg := testConfig()
	svc := New(nil, nil, solverCfg, comboCfg)
	ctx := context.Background()

	cat, err := svc.AnalyzeSegments(ctx, 4, comboSegments(4), nil, 0)
	require.NoError(t, err)
	assert.Len(t, cat.Combinations, 2)

	unlimited := &daycombo.StandardRules{}
	cat, err = svc.AnalyzeSegments(ctx, 4, shortSegments(4, 12), unlimited, 6)
	require.NoError(t, err)
	assert.Len(t, cat.Combinations, 924)

	_, err = svc.AnalyzeSegments(ctx, 4, shortSegments(4, 16), unlimited, 6)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput), "got %v", err)
	assert.True(t, errors.Is(err, daycombo.ErrTooManyCombinations))

	_, err = svc.AnalyzeSegments(ctx, 4, shortSegments(4, 32), unlimited, 6)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput), "got %v", err)

	// 内联分析不占用进程内缓存
	assert.Equal(t, 0, svc.memo.Len())
}

func TestValidateDayPlans(t *testing.T) {
	store := &fakeStore{segments: map[int64][]model.ShiftSegment{1: comboSegments(1)}}
	solverCfg, comboCfg := testConfig()
	svc := New(store, nil, solverCfg, comboCfg)

	conflicts, err := svc.ValidateDayPlans(context.Background(), 1, []validator.DayPlan{
		{AgentID: 5, StartDate: "2026-03-02", Days: [][]int64{{1, 2}, {3}, {2, 1}}},
		{AgentID: 6, StartDate: "2026-03-02", Days: [][]int64{{1}, {}}},
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, validator.ConflictRestTime, conflicts[0].Type)
	assert.Equal(t, "2026-03-04", conflicts[0].Date)
	assert.Equal(t, validator.ConflictDayCombo, conflicts[1].Type)
	assert.Equal(t, int64(6), conflicts[1].AgentID)

	_, err = svc.ValidateDayPlans(context.Background(), 99, nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound), "got %v", err)
}
