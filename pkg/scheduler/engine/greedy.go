package engine

import (
	"sort"

	"github.com/paiban/planning/pkg/model"
	"github.com/paiban/planning/pkg/planning"
)

// greedyHint 贪心构造满足全部硬约束的初始解，作为精确搜索的起点
//
// 先处理硬锁定时槽，再按 ID 处理其余时槽；修复模式下优先保留基线人员，
// 其余候选按已分配数升序（工作量少的优先）。构造结果只作提示，
// 不满足模型时由求解器忽略。
func greedyHint(inst *planning.Instance, b *builder, maxConsecutive int) []bool {
	values := make([]bool, b.model.NumVars())
	worked := make(map[int64]map[string]bool, len(inst.Agents))
	load := make(map[int64]int, len(inst.Agents))
	covered := make([]bool, len(inst.Slots))

	baseline := make(map[planning.GroupKey]planning.BaselineGroup, len(inst.Baseline))
	for _, g := range inst.Baseline {
		baseline[g.Key] = g
	}

	take := func(slotID, idx int) {
		sv := b.slots[slotID]
		agentID := sv.agents[idx]
		values[sv.x[idx]] = true
		covered[slotID] = true
		if worked[agentID] == nil {
			worked[agentID] = make(map[string]bool)
		}
		worked[agentID][inst.Slots[slotID].Date] = true
		load[agentID]++
	}

	canTake := func(agentID int64, date string) bool {
		days := worked[agentID]
		if days[date] {
			return false
		}
		if maxConsecutive <= 0 {
			return true
		}
		run := 1
		for d := model.AddDays(date, -1); days[d]; d = model.AddDays(d, -1) {
			run++
		}
		for d := model.AddDays(date, 1); days[d]; d = model.AddDays(d, 1) {
			run++
		}
		return run <= maxConsecutive
	}

	// 硬锁定
	for _, slot := range inst.Slots {
		lock := inst.Lock(slot.ID)
		if lock.Kind != planning.LockHard {
			continue
		}
		for i, agentID := range b.slots[slot.ID].agents {
			if agentID == lock.AgentID {
				take(slot.ID, i)
			}
		}
	}

	for _, slot := range inst.Slots {
		if covered[slot.ID] || inst.Lock(slot.ID).Kind == planning.LockHard {
			continue
		}
		sv := b.slots[slot.ID]
		group := baseline[slot.Key()]

		order := make([]int, len(sv.agents))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			ai, aj := sv.agents[order[i]], sv.agents[order[j]]
			bi, bj := group.Contains(ai), group.Contains(aj)
			if bi != bj {
				return bi
			}
			if load[ai] != load[aj] {
				return load[ai] < load[aj]
			}
			return ai < aj
		})

		for _, idx := range order {
			if canTake(sv.agents[idx], slot.Date) {
				take(slot.ID, idx)
				break
			}
		}
	}

	for slotID, sv := range b.slots {
		values[sv.uncovered] = !covered[slotID]
	}
	for _, w := range b.worked {
		values[w.v] = worked[w.agentID][w.date]
	}
	for _, cg := range b.changes {
		for _, av := range cg.assigned {
			for _, x := range av.xs {
				values[av.y] = values[av.y] || values[x]
			}
		}
	}
	return values
}
