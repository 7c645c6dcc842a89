package engine

import (
	"fmt"

	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/logger"
	"github.com/paiban/planning/pkg/model"
	"github.com/paiban/planning/pkg/planning"
	"github.com/paiban/planning/pkg/scheduler/cp"
)

// slotVars 一个时槽的候选变量
type slotVars struct {
	agents    []int64 // 候选人员，按 ID 升序
	x         []cp.Var
	uncovered cp.Var
}

// agentDay (人员, 日期) 键
type agentDay struct {
	agentID int64
	date    string
}

// workedVar worked[人员, 日期]，等于当日该人员 x 之和
type workedVar struct {
	agentDay
	v cp.Var
}

// assignedVar assigned[人员, 组] = OR(该人员在组内各时槽的 x)
type assignedVar struct {
	y  cp.Var
	xs []cp.Var
}

// changeGroup 基线组的变更计数项
type changeGroup struct {
	key      planning.GroupKey
	constant int // 在组内没有候选变量的基线人员，必然被移出
	assigned []assignedVar
}

// builder 模型及其与实例的映射
type builder struct {
	inst    *planning.Instance
	model   *cp.Model
	slots   []slotVars
	byDay   map[agentDay][]cp.Var
	worked  []workedVar
	changes []changeGroup
	horizon []string
}

// build 按时槽 ID 顺序创建变量：每个时槽先是按人员 ID 排列的 x，再是 uncovered
func build(inst *planning.Instance, w Weights, maxConsecutive int) (*builder, error) {
	b := &builder{
		inst:  inst,
		model: cp.NewModel(),
		slots: make([]slotVars, len(inst.Slots)),
		byDay: make(map[agentDay][]cp.Var),
	}

	for _, slot := range inst.Slots {
		sv := &b.slots[slot.ID]
		for i := range inst.Agents {
			a := &inst.Agents[i]
			if !a.CanWork(slot) {
				continue
			}
			v := b.model.NewBoolVar(fmt.Sprintf("x[%d,%d]", a.ID, slot.ID))
			sv.agents = append(sv.agents, a.ID)
			sv.x = append(sv.x, v)
			key := agentDay{a.ID, slot.Date}
			b.byDay[key] = append(b.byDay[key], v)
		}
		sv.uncovered = b.model.NewBoolVar(fmt.Sprintf("uncovered[%d]", slot.ID))
	}

	if err := b.addCoverage(); err != nil {
		return nil, err
	}
	b.addOnePerDay()
	if maxConsecutive > 0 {
		if err := b.addMaxConsecutive(maxConsecutive); err != nil {
			return nil, err
		}
	}

	objective := make([]cp.Term, 0, len(b.slots))
	for _, sv := range b.slots {
		objective = append(objective, cp.Term{Var: sv.uncovered, Coef: w.Uncovered})
	}
	var offset int64
	if inst.Mode == planning.ModeRepair {
		terms, constant := b.addChangeCounts(w.Change)
		objective = append(objective, terms...)
		offset = constant
	}
	b.model.Minimize(objective, offset)
	return b, nil
}

// addCoverage 覆盖约束与硬锁定
func (b *builder) addCoverage() error {
	for _, slot := range b.inst.Slots {
		sv := b.slots[slot.ID]
		lock := b.inst.Lock(slot.ID)
		if lock.Kind == planning.LockHard {
			found := false
			for i, agentID := range sv.agents {
				match := agentID == lock.AgentID
				found = found || match
				b.model.Fix(sv.x[i], match)
			}
			if !found {
				reason := "人员不具备资质或当日不可用"
				if _, ok := b.inst.Agent(lock.AgentID); !ok {
					reason = "人员不存在"
				}
				logger.NewSolverLogger().LockConflict(slot.ID, lock.AgentID, reason)
				return apperrors.InvalidLock(slot.ID, lock.AgentID, reason)
			}
			b.model.Fix(sv.uncovered, false)
			continue
		}

		terms := make([]cp.Term, 0, len(sv.x)+1)
		for _, v := range sv.x {
			terms = append(terms, cp.Term{Var: v, Coef: 1})
		}
		terms = append(terms, cp.Term{Var: sv.uncovered, Coef: 1})
		b.model.AddEqual(fmt.Sprintf("cover[%d]", slot.ID), terms, 1)
	}
	return nil
}

// addOnePerDay 每人每日至多一个时槽
func (b *builder) addOnePerDay() {
	for _, key := range b.sortedDays() {
		vars := b.byDay[key]
		if len(vars) < 2 {
			continue
		}
		b.model.AddLessOrEqual(fmt.Sprintf("day[%d,%s]", key.agentID, key.date), ones(vars), 1)
	}
}

// addMaxConsecutive 在时槽覆盖的日历范围内，任意 k+1 个连续日历日最多工作 k 天
func (b *builder) addMaxConsecutive(k int) error {
	dates := b.inst.Dates()
	if len(dates) == 0 {
		return nil
	}
	horizon, err := model.DateRange(dates[0], dates[len(dates)-1])
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "时槽日期无效")
	}
	b.horizon = horizon

	workedByDay := make(map[agentDay]cp.Var)
	for _, key := range b.sortedDays() {
		v := b.model.NewBoolVar(fmt.Sprintf("worked[%d,%s]", key.agentID, key.date))
		terms := ones(b.byDay[key])
		terms = append(terms, cp.Term{Var: v, Coef: -1})
		b.model.AddEqual(fmt.Sprintf("worked[%d,%s]", key.agentID, key.date), terms, 0)
		workedByDay[key] = v
		b.worked = append(b.worked, workedVar{agentDay: key, v: v})
	}

	if len(horizon) <= k {
		return nil
	}
	for _, a := range b.inst.Agents {
		for start := 0; start+k < len(horizon); start++ {
			var window []cp.Var
			for _, d := range horizon[start : start+k+1] {
				if v, ok := workedByDay[agentDay{a.ID, d}]; ok {
					window = append(window, v)
				}
			}
			if len(window) > k {
				b.model.AddLessOrEqual(fmt.Sprintf("consecutive[%d,%s]", a.ID, horizon[start]), ones(window), int64(k))
			}
		}
	}
	return nil
}

// addChangeCounts 修复模式下每个基线组的变更计数
// removed = 1 - assigned，因此每个基线人员贡献 -weight*assigned，常数项 +weight
func (b *builder) addChangeCounts(weight int64) ([]cp.Term, int64) {
	slotsByKey := b.inst.SlotsByKey()
	var terms []cp.Term
	var offset int64

	for _, g := range b.inst.Baseline {
		cg := changeGroup{key: g.Key}
		for _, agentID := range g.AgentIDs {
			var xs []cp.Var
			for _, slotID := range slotsByKey[g.Key] {
				sv := b.slots[slotID]
				for i, id := range sv.agents {
					if id == agentID {
						xs = append(xs, sv.x[i])
					}
				}
			}
			offset += weight
			if len(xs) == 0 {
				cg.constant++
				continue
			}
			y := b.model.NewBoolVar(fmt.Sprintf("assigned[%d,%s]", agentID, g.Key))
			b.model.AddMaxEquality(fmt.Sprintf("assigned[%d,%s]", agentID, g.Key), y, xs)
			cg.assigned = append(cg.assigned, assignedVar{y: y, xs: xs})
			terms = append(terms, cp.Term{Var: y, Coef: -weight})
		}
		b.changes = append(b.changes, cg)
	}
	return terms, offset
}

// sortedDays 按 (人员, 日期) 排序的键，保证约束顺序确定
func (b *builder) sortedDays() []agentDay {
	keys := make([]agentDay, 0, len(b.byDay))
	dates := b.inst.Dates()
	for _, a := range b.inst.Agents {
		for _, d := range dates {
			key := agentDay{a.ID, d}
			if _, ok := b.byDay[key]; ok {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func ones(vars []cp.Var) []cp.Term {
	terms := make([]cp.Term, len(vars), len(vars)+1)
	for i, v := range vars {
		terms[i] = cp.Term{Var: v, Coef: 1}
	}
	return terms
}
