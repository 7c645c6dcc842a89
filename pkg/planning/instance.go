package planning

import (
	"fmt"
	"sort"

	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/model"
)

// Instance 一次求解的完整输入，构建后不再修改
type Instance struct {
	Mode     Mode            `json:"mode"`
	Agents   []SolverAgent   `json:"agents"`
	Slots    []Slot          `json:"slots"`
	Baseline []BaselineGroup `json:"baseline"`
	Locks    []SlotLock      `json:"locks"`

	agentIndex map[int64]int
}

// InstanceInput 构建实例所需的外部快照
type InstanceInput struct {
	Mode             Mode
	Needs            []model.Need
	Agents           []model.Agent
	AgentDays        []model.AgentDay
	PriorAssignments []model.Assignment
	Tranches         map[int64]model.Tranche
	HardLocks        map[int]int64 // slot id -> agent id
}

// BuildInstance 依次展开时槽、构建人员、分组基线并合并锁定
// 基线只在修复模式下构建；硬锁定引用不存在的时槽返回 INVALID_LOCK
func BuildInstance(in InstanceInput) (*Instance, error) {
	if !in.Mode.Valid() {
		return nil, apperrors.InvalidInput("mode", fmt.Sprintf("未知模式 %q", in.Mode))
	}

	slots := ExpandNeedsToSlots(in.Needs)
	for slotID, agentID := range in.HardLocks {
		if slotID < 0 || slotID >= len(slots) {
			return nil, apperrors.InvalidLock(slotID, agentID, "时槽不存在")
		}
	}

	var baseline []BaselineGroup
	if in.Mode == ModeRepair {
		var err error
		baseline, err = BuildBaselineGroups(in.PriorAssignments, in.Tranches)
		if err != nil {
			return nil, err
		}
	}

	inst := &Instance{
		Mode:     in.Mode,
		Agents:   BuildSolverAgents(in.Agents, in.AgentDays),
		Slots:    slots,
		Baseline: baseline,
		Locks:    MergeLocks(slots, in.Mode, in.HardLocks, baseline),
	}
	inst.index()
	return inst, nil
}

func (inst *Instance) index() {
	inst.agentIndex = make(map[int64]int, len(inst.Agents))
	for i, a := range inst.Agents {
		inst.agentIndex[a.ID] = i
	}
}

// Slot 按 ID 查询时槽（时槽 ID 即下标）
func (inst *Instance) Slot(id int) (Slot, bool) {
	if id < 0 || id >= len(inst.Slots) {
		return Slot{}, false
	}
	return inst.Slots[id], true
}

// Lock 查询时槽锁定
func (inst *Instance) Lock(id int) SlotLock {
	if id < 0 || id >= len(inst.Locks) {
		return SlotLock{SlotID: id, Kind: LockNone}
	}
	return inst.Locks[id]
}

// Agent 按 ID 查询人员
func (inst *Instance) Agent(id int64) (*SolverAgent, bool) {
	if inst.agentIndex == nil {
		inst.index()
	}
	i, ok := inst.agentIndex[id]
	if !ok {
		return nil, false
	}
	return &inst.Agents[i], true
}

// Dates 时槽覆盖的日期，升序去重
func (inst *Instance) Dates() []string {
	seen := make(map[string]bool)
	dates := make([]string, 0)
	for _, s := range inst.Slots {
		if !seen[s.Date] {
			seen[s.Date] = true
			dates = append(dates, s.Date)
		}
	}
	sort.Strings(dates)
	return dates
}

// SlotsByKey 按分组键聚合时槽 ID
func (inst *Instance) SlotsByKey() map[GroupKey][]int {
	out := make(map[GroupKey][]int)
	for _, s := range inst.Slots {
		out[s.Key()] = append(out[s.Key()], s.ID)
	}
	return out
}
