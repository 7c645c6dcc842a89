// Package service 编排数据加载、实例构建、求解与结果报告
package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/paiban/planning/internal/config"
	"github.com/paiban/planning/internal/constraints"
	"github.com/paiban/planning/internal/metrics"
	"github.com/paiban/planning/internal/repository"
	"github.com/paiban/planning/pkg/daycombo"
	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/logger"
	"github.com/paiban/planning/pkg/model"
	"github.com/paiban/planning/pkg/planning"
	"github.com/paiban/planning/pkg/scheduler/engine"
	"github.com/paiban/planning/pkg/stats"
	"github.com/paiban/planning/pkg/validator"
)

// comboFanOut 并发计算组合目录的岗位数上限
const comboFanOut = 4

// Store 排班快照的持久化边界
type Store interface {
	ListNeeds(ctx context.Context, dr repository.DateRange) ([]model.Need, error)
	ListAgents(ctx context.Context) ([]model.Agent, error)
	ListAgentDays(ctx context.Context, dr repository.DateRange) ([]model.AgentDay, error)
	ListTranches(ctx context.Context) (map[int64]model.Tranche, error)
	ListAssignments(ctx context.Context, dr repository.DateRange) ([]model.Assignment, error)
	ListSegments(ctx context.Context, unitID int64) ([]model.ShiftSegment, error)
	ListUnitIDs(ctx context.Context) ([]int64, error)
	SaveSolveRun(ctx context.Context, run *repository.SolveRun) error
}

// ComboCache 跨进程的组合目录缓存
type ComboCache interface {
	Get(ctx context.Context, unitID int64, fingerprint string) (*daycombo.Catalogue, bool, error)
	Set(ctx context.Context, cat *daycombo.Catalogue) error
}

// SolveOptions 单次求解参数，零值字段使用配置默认值
type SolveOptions struct {
	TimeLimit          time.Duration   `json:"time_limit,omitempty"`
	Workers            int             `json:"workers,omitempty"`
	MaxConsecutiveDays *int            `json:"max_consecutive_days,omitempty"`
	Seed               *int64          `json:"seed,omitempty"`
	Log                bool            `json:"log,omitempty"`
	Weights            *engine.Weights `json:"weights,omitempty"`
}

// SolveRequest 按日期范围从存储加载并求解
type SolveRequest struct {
	Mode      planning.Mode
	StartDate string
	EndDate   string
	HardLocks map[int]int64
	Options   SolveOptions
}

// Outcome 求解结果及其报告
type Outcome struct {
	RunID         uuid.UUID                `json:"run_id"`
	Mode          planning.Mode            `json:"mode"`
	Slots         []planning.Slot          `json:"slots"`
	Solution      *planning.Solution       `json:"solution"`
	Coverage      *stats.CoverageMetrics   `json:"coverage"`
	Shortages     []stats.CapacityShortage `json:"capacity_shortages"`
	Modifications int                      `json:"modifications"`
	Diffs         []stats.GroupDiff        `json:"diffs,omitempty"`
	Conflicts     []validator.Conflict     `json:"conflicts"`
}

// PlanningService 排班服务
type PlanningService struct {
	store    Store
	combos   ComboCache
	memo     *daycombo.Cache
	solver   config.SolverConfig
	rules    daycombo.StandardRules
	maxSize  int
	limits   daycombo.Limits
	coverage *stats.CoverageAnalyzer
}

// New 创建排班服务；store 与 combos 可以为 nil
func New(store Store, combos ComboCache, solverCfg config.SolverConfig, comboCfg config.DayComboConfig) *PlanningService {
	return &PlanningService{
		store:    store,
		combos:   combos,
		memo:     daycombo.NewBoundedCache(comboCfg.MemoSize),
		solver:   solverCfg,
		rules:    comboCfg.Rules(),
		maxSize:  comboCfg.MaxSize,
		limits:   comboCfg.Limits(),
		coverage: stats.NewCoverageAnalyzer(),
	}
}

// Params 合并配置默认值与请求参数
func (s *PlanningService) Params(opts SolveOptions) engine.Params {
	p := engine.Params{
		TimeLimit:          s.solver.TimeLimit,
		Workers:            s.solver.Workers,
		MaxConsecutiveDays: s.solver.MaxConsecutiveDays,
		Seed:               s.solver.Seed,
		Log:                s.solver.Log || opts.Log,
		Weights:            opts.Weights,
	}
	if opts.TimeLimit > 0 {
		p.TimeLimit = opts.TimeLimit
	}
	if s.solver.MaxTimeLimit > 0 && p.TimeLimit > s.solver.MaxTimeLimit {
		p.TimeLimit = s.solver.MaxTimeLimit
	}
	if opts.Workers > 0 {
		p.Workers = opts.Workers
	}
	if opts.MaxConsecutiveDays != nil {
		p.MaxConsecutiveDays = *opts.MaxConsecutiveDays
	}
	if opts.Seed != nil {
		p.Seed = *opts.Seed
	}
	return p
}

// SolveInput 对调用方提供的快照求解，不访问存储
func (s *PlanningService) SolveInput(ctx context.Context, in planning.InstanceInput, opts SolveOptions) (*Outcome, error) {
	inst, err := planning.BuildInstance(in)
	if err != nil {
		return nil, err
	}
	return s.solve(ctx, inst, opts)
}

// SolveRange 从存储加载日期范围内的快照，求解并记录运行
func (s *PlanningService) SolveRange(ctx context.Context, req SolveRequest) (*Outcome, error) {
	if s.store == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "未配置数据存储")
	}
	dr := repository.DateRange{Start: req.StartDate, End: req.EndDate}
	if err := dr.Validate(); err != nil {
		return nil, err
	}

	in, err := s.load(ctx, req.Mode, dr)
	if err != nil {
		return nil, err
	}
	in.HardLocks = req.HardLocks

	inst, err := planning.BuildInstance(in)
	if err != nil {
		return nil, err
	}

	out, err := s.solve(ctx, inst, req.Options)
	if err != nil {
		return nil, err
	}

	run := &repository.SolveRun{
		ID:             out.RunID,
		Mode:           string(out.Mode),
		Status:         string(out.Solution.Status),
		Objective:      out.Solution.Objective,
		StartDate:      dr.Start,
		EndDate:        dr.End,
		SlotCount:      len(out.Slots),
		UncoveredCount: len(out.Solution.Uncovered),
		ChangeCount:    out.Solution.TotalChanges(),
		Duration:       out.Solution.WallTime,
		Metadata: map[string]interface{}{
			"request_id": logger.RequestIDFromContext(ctx),
			"hard_locks": len(req.HardLocks),
			"shortages":  stats.HardInfeasibleDemand(out.Shortages),
		},
	}
	if err := s.store.SaveSolveRun(ctx, run); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Str("run_id", run.ID.String()).Msg("记录求解运行失败")
	}
	return out, nil
}

// load 并发读取构建实例所需的全部快照
func (s *PlanningService) load(ctx context.Context, mode planning.Mode, dr repository.DateRange) (planning.InstanceInput, error) {
	in := planning.InstanceInput{Mode: mode}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Needs, err = s.store.ListNeeds(gctx, dr)
		return err
	})
	g.Go(func() (err error) {
		in.Agents, err = s.store.ListAgents(gctx)
		return err
	})
	g.Go(func() (err error) {
		in.AgentDays, err = s.store.ListAgentDays(gctx, dr)
		return err
	})
	if mode == planning.ModeRepair {
		g.Go(func() (err error) {
			in.Tranches, err = s.store.ListTranches(gctx)
			return err
		})
		g.Go(func() (err error) {
			in.PriorAssignments, err = s.store.ListAssignments(gctx, dr)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return in, err
	}
	return in, nil
}

type solveResult struct {
	sol *planning.Solution
	err error
}

// solve 在独立 goroutine 中阻塞求解；调用方取消时立即返回，求解在时限内自行结束
func (s *PlanningService) solve(ctx context.Context, inst *planning.Instance, opts SolveOptions) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	params := s.Params(opts)
	runID := uuid.New()
	log := logger.WithContext(ctx).With().Str("run_id", runID.String()).Logger()

	ch := make(chan solveResult, 1)
	go func() {
		done := metrics.SolveStarted()
		defer done()
		sol, err := engine.Solve(inst, params)
		ch <- solveResult{sol: sol, err: err}
	}()

	var res solveResult
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("调用方取消，放弃求解结果")
		return nil, contextError(ctx.Err())
	case res = <-ch:
	}
	if res.err != nil {
		return nil, res.err
	}
	sol := res.sol

	out := &Outcome{
		RunID:     runID,
		Mode:      inst.Mode,
		Slots:     inst.Slots,
		Solution:  sol,
		Coverage:  s.coverage.Analyze(inst, sol),
		Shortages: stats.CheckCapacity(inst),
		Conflicts: []validator.Conflict{},
	}

	if sol.IsUsable() {
		if inst.Mode == planning.ModeRepair {
			groups := stats.GroupAssignments(sol.Assignments, stats.SlotKeyLookup(inst.Slots))
			out.Modifications = stats.ComputeModifications(inst.Baseline, groups)
			for _, d := range stats.DiffGroups(inst.Baseline, groups) {
				if d.Changed() {
					out.Diffs = append(out.Diffs, d)
				}
			}
		}

		detector := validator.NewConflictDetector(&validator.DetectorConfig{MaxConsecutiveDays: params.MaxConsecutiveDays})
		if conflicts := detector.DetectAll(inst, sol); len(conflicts) > 0 {
			out.Conflicts = conflicts
			log.Error().Int("conflicts", len(out.Conflicts)).Msg("求解结果未通过复核")
		}
	}

	metrics.RecordSolve(string(inst.Mode), string(sol.Status), sol.WallTime, len(sol.Uncovered), sol.TotalChanges())
	log.Info().
		Str("mode", string(inst.Mode)).
		Str("status", string(sol.Status)).
		Int64("objective", sol.Objective).
		Int("slots", len(inst.Slots)).
		Int("uncovered", len(sol.Uncovered)).
		Int("modifications", out.Modifications).
		Msg("求解完成")

	return out, nil
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "请求超时")
	}
	return apperrors.Wrap(err, apperrors.CodeCanceled, "请求已取消")
}

// Constraints 返回按当前配置生效的约束库
func (s *PlanningService) Constraints() []constraints.ConstraintDefinition {
	return constraints.Library(s.solver, s.rules, s.maxSize)
}

// AnalyzeSegments 计算调用方提供的一组班段的组合目录，结果不进入缓存。
// rules 为 nil 时使用配置规则，maxSize <= 0 时使用配置上限
func (s *PlanningService) AnalyzeSegments(ctx context.Context, unitID int64, segments []model.ShiftSegment, rules *daycombo.StandardRules, maxSize int) (*daycombo.Catalogue, error) {
	r := s.rules
	if rules != nil {
		r = *rules
	}
	if maxSize <= 0 {
		maxSize = s.maxSize
	}
	cat, err := daycombo.AnalyzeLimited(unitID, segments, r, maxSize, s.limits)
	if err != nil {
		return nil, comboError(err)
	}
	logger.WithContext(ctx).Debug().Int64("unit_id", unitID).Int("combinations", len(cat.Combinations)).Msg("班段组合已分析")
	return cat, nil
}

// DayCombos 读取岗位班段并返回组合目录；unitIDs 为空时处理全部岗位
func (s *PlanningService) DayCombos(ctx context.Context, unitIDs []int64) (map[int64]*daycombo.Catalogue, error) {
	if s.store == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "未配置数据存储")
	}
	if len(unitIDs) == 0 {
		ids, err := s.store.ListUnitIDs(ctx)
		if err != nil {
			return nil, err
		}
		unitIDs = ids
	}

	var mu sync.Mutex
	result := make(map[int64]*daycombo.Catalogue, len(unitIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(comboFanOut)
	for _, unitID := range unitIDs {
		unitID := unitID
		g.Go(func() error {
			segments, err := s.store.ListSegments(gctx, unitID)
			if err != nil {
				return err
			}
			cat, err := s.catalogue(gctx, unitID, segments, s.rules, s.maxSize)
			if err != nil {
				return err
			}

			mu.Lock()
			result[unitID] = cat
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateDayPlans 用岗位组合目录复核人员的逐日班段安排
func (s *PlanningService) ValidateDayPlans(ctx context.Context, unitID int64, plans []validator.DayPlan) ([]validator.Conflict, error) {
	cats, err := s.DayCombos(ctx, []int64{unitID})
	if err != nil {
		return nil, err
	}
	cat := cats[unitID]
	if len(cat.Combinations) == 0 {
		return nil, apperrors.NotFound("岗位组合目录", strconv.FormatInt(unitID, 10))
	}

	detector := validator.NewConflictDetector(nil)
	conflicts := []validator.Conflict{}
	for _, plan := range plans {
		conflicts = append(conflicts, detector.DetectDayPlan(cat, plan)...)
	}
	return conflicts, nil
}

// catalogue 依次查询进程内缓存、Redis，均未命中时计算并回填
func (s *PlanningService) catalogue(ctx context.Context, unitID int64, segments []model.ShiftSegment, rules daycombo.StandardRules, maxSize int) (*daycombo.Catalogue, error) {
	if s.combos == nil {
		cat, hit, err := s.memo.GetOrAnalyze(unitID, segments, rules, maxSize, s.limits)
		if err != nil {
			return nil, comboError(err)
		}
		if hit {
			metrics.RecordComboLookup("memory")
		} else {
			metrics.RecordComboLookup("computed")
		}
		return cat, nil
	}

	fp := daycombo.Fingerprint(segments, rules, maxSize)
	if cat, ok := s.memo.Get(unitID, fp); ok {
		metrics.RecordComboLookup("memory")
		return cat, nil
	}

	log := logger.WithContext(ctx).With().Int64("unit_id", unitID).Str("fingerprint", fp).Logger()
	cat, ok, err := s.combos.Get(ctx, unitID, fp)
	if err != nil {
		log.Warn().Err(err).Msg("读取组合目录缓存失败，改为重新计算")
	} else if ok {
		metrics.RecordComboLookup("redis")
		s.memo.Put(cat)
		return cat, nil
	}

	cat, err = daycombo.AnalyzeLimited(unitID, segments, rules, maxSize, s.limits)
	if err != nil {
		return nil, comboError(err)
	}
	metrics.RecordComboLookup("computed")
	s.memo.Put(cat)
	log.Debug().Int("combinations", len(cat.Combinations)).Int("rest_pairs", cat.Rest.Len()).Msg("组合目录已计算")

	if err := s.combos.Set(ctx, cat); err != nil {
		log.Warn().Err(err).Msg("写入组合目录缓存失败")
	}
	return cat, nil
}

// comboError 将组合规模超限映射为输入错误
func comboError(err error) error {
	if errors.Is(err, daycombo.ErrTooManyCombinations) {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "班段组合规模超过上限，请减少班段数或设置 max_size")
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, "组合目录计算失败")
}
