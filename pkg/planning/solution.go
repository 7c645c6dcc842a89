package planning

import "time"

// Status 求解状态
type Status string

const (
	StatusOptimal      Status = "OPTIMAL"
	StatusFeasible     Status = "FEASIBLE"
	StatusInfeasible   Status = "INFEASIBLE"
	StatusModelInvalid Status = "MODEL_INVALID"
)

// Assignment 求解结果中的 (人员, 时槽) 分配
type Assignment struct {
	AgentID int64 `json:"agent_id"`
	SlotID  int   `json:"slot_id"`
}

// GroupChange 某基线组中被移出的基线人员数
type GroupChange struct {
	Key   GroupKey `json:"key"`
	Count int      `json:"count"`
}

// Solution 求解结果
type Solution struct {
	Status             Status        `json:"status"`
	Objective          int64         `json:"objective"`
	Assignments        []Assignment  `json:"assignments"`          // 按 (slot, agent) 排序
	Uncovered          []int         `json:"uncovered"`            // 升序
	ChangeCountByGroup []GroupChange `json:"change_count_by_group"` // 仅修复模式
	WallTime           time.Duration `json:"wall_time"`
}

// EmptySolution 无可用结果时的空解
func EmptySolution(status Status) *Solution {
	return &Solution{
		Status:             status,
		Assignments:        []Assignment{},
		Uncovered:          []int{},
		ChangeCountByGroup: []GroupChange{},
	}
}

// IsUsable 是否包含可用分配（OPTIMAL 或 FEASIBLE）
func (s *Solution) IsUsable() bool {
	return s.Status == StatusOptimal || s.Status == StatusFeasible
}

// TotalChanges 各基线组变更数之和
func (s *Solution) TotalChanges() int {
	total := 0
	for _, c := range s.ChangeCountByGroup {
		total += c.Count
	}
	return total
}
