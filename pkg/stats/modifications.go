package stats

import (
	"sort"

	"github.com/paiban/planning/pkg/planning"
)

// AgentSet 人员ID集合
type AgentSet map[int64]bool

// Sorted 升序返回集合成员
func (s AgentSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SlotKeyLookup 时槽ID到分组键的映射
func SlotKeyLookup(slots []planning.Slot) map[int]planning.GroupKey {
	lookup := make(map[int]planning.GroupKey, len(slots))
	for _, s := range slots {
		lookup[s.ID] = s.Key()
	}
	return lookup
}

// GroupAssignments 将分配按分组键聚合为人员集合，未知时槽忽略
func GroupAssignments(assignments []planning.Assignment, lookup map[int]planning.GroupKey) map[planning.GroupKey]AgentSet {
	groups := make(map[planning.GroupKey]AgentSet)
	for _, a := range assignments {
		key, ok := lookup[a.SlotID]
		if !ok {
			continue
		}
		if groups[key] == nil {
			groups[key] = make(AgentSet)
		}
		groups[key][a.AgentID] = true
	}
	return groups
}

// ComputeModifications 基线人员未出现在对应解分组中的总数
// 对同一实例，与求解器给出的各组变更数之和相等
func ComputeModifications(baseline []planning.BaselineGroup, groups map[planning.GroupKey]AgentSet) int {
	total := 0
	for _, g := range baseline {
		current := groups[g.Key]
		for _, id := range g.AgentIDs {
			if !current[id] {
				total++
			}
		}
	}
	return total
}

// GroupDiff 单个分组相对基线的变化
type GroupDiff struct {
	Key     planning.GroupKey `json:"key"`
	Kept    []int64           `json:"kept"`
	Added   []int64           `json:"added"`
	Removed []int64           `json:"removed"`
}

// Changed 是否有变化
func (d GroupDiff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// DiffGroups 对比基线与解的每个分组，按分组键排序
func DiffGroups(baseline []planning.BaselineGroup, groups map[planning.GroupKey]AgentSet) []GroupDiff {
	before := make(map[planning.GroupKey]AgentSet, len(baseline))
	keys := make([]planning.GroupKey, 0, len(baseline)+len(groups))
	for _, g := range baseline {
		set := make(AgentSet, len(g.AgentIDs))
		for _, id := range g.AgentIDs {
			set[id] = true
		}
		before[g.Key] = set
		keys = append(keys, g.Key)
	}
	for key := range groups {
		if _, ok := before[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	diffs := make([]GroupDiff, 0, len(keys))
	for _, key := range keys {
		old, cur := before[key], groups[key]
		d := GroupDiff{Key: key, Kept: []int64{}, Added: []int64{}, Removed: []int64{}}
		for _, id := range old.Sorted() {
			if cur[id] {
				d.Kept = append(d.Kept, id)
			} else {
				d.Removed = append(d.Removed, id)
			}
		}
		for _, id := range cur.Sorted() {
			if !old[id] {
				d.Added = append(d.Added, id)
			}
		}
		diffs = append(diffs, d)
	}
	return diffs
}
