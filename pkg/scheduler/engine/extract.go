package engine

import (
	"sort"

	"github.com/paiban/planning/pkg/planning"
	"github.com/paiban/planning/pkg/scheduler/cp"
)

// extract 从求解结果读取分配、未覆盖时槽与各基线组变更数
func (b *builder) extract(res *cp.Result) *planning.Solution {
	sol := planning.EmptySolution(planning.Status(res.Status))
	sol.Objective = res.Objective

	for slotID, sv := range b.slots {
		for i, v := range sv.x {
			if res.Value(v) {
				sol.Assignments = append(sol.Assignments, planning.Assignment{AgentID: sv.agents[i], SlotID: slotID})
			}
		}
		if res.Value(sv.uncovered) {
			sol.Uncovered = append(sol.Uncovered, slotID)
		}
	}
	sort.Slice(sol.Assignments, func(i, j int) bool {
		if sol.Assignments[i].SlotID != sol.Assignments[j].SlotID {
			return sol.Assignments[i].SlotID < sol.Assignments[j].SlotID
		}
		return sol.Assignments[i].AgentID < sol.Assignments[j].AgentID
	})
	sort.Ints(sol.Uncovered)

	for _, cg := range b.changes {
		count := cg.constant
		for _, av := range cg.assigned {
			if !res.Value(av.y) {
				count++
			}
		}
		sol.ChangeCountByGroup = append(sol.ChangeCountByGroup, planning.GroupChange{Key: cg.key, Count: count})
	}
	sort.SliceStable(sol.ChangeCountByGroup, func(i, j int) bool {
		return sol.ChangeCountByGroup[i].Key.Less(sol.ChangeCountByGroup[j].Key)
	})
	return sol
}
