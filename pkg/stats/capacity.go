package stats

import (
	"sort"

	"github.com/paiban/planning/pkg/planning"
)

// CapacityShortage 某分组具备资质且可用的人数少于需求人数
type CapacityShortage struct {
	Key       planning.GroupKey `json:"key"`
	Required  int               `json:"required"`
	Available int               `json:"available"`
	Shortage  int               `json:"shortage"`
}

// CheckCapacity 求解前的容量预检：统计每个分组的候选人数与需求人数
// 用于向用户解释无法覆盖的原因，求解器本身不给出不可行原因
func CheckCapacity(inst *planning.Instance) []CapacityShortage {
	required := make(map[planning.GroupKey]int)
	sample := make(map[planning.GroupKey]planning.Slot)
	for _, s := range inst.Slots {
		required[s.Key()]++
		sample[s.Key()] = s
	}

	shortages := make([]CapacityShortage, 0)
	for key, need := range required {
		available := 0
		for i := range inst.Agents {
			if inst.Agents[i].CanWork(sample[key]) {
				available++
			}
		}
		if available < need {
			shortages = append(shortages, CapacityShortage{
				Key:       key,
				Required:  need,
				Available: available,
				Shortage:  need - available,
			})
		}
	}
	sort.Slice(shortages, func(i, j int) bool { return shortages[i].Key.Less(shortages[j].Key) })
	return shortages
}

// HardInfeasibleDemand 容量不足导致必然无法覆盖的需求总数
func HardInfeasibleDemand(shortages []CapacityShortage) int {
	total := 0
	for _, s := range shortages {
		total += s.Shortage
	}
	return total
}
