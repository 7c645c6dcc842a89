package planning

import (
	"sort"

	"github.com/paiban/planning/pkg/model"
)

// SolverAgent 求解用人员：资质岗位集合与硬不可用日期集合
type SolverAgent struct {
	ID             int64           `json:"id"`
	QualifiedUnits map[int64]bool  `json:"qualified_units"`
	Unavailable    map[string]bool `json:"unavailable,omitempty"`
}

// IsQualified 检查是否具备岗位资质
func (a *SolverAgent) IsQualified(unitID int64) bool {
	return a.QualifiedUnits[unitID]
}

// IsAvailable 检查某日是否可排
func (a *SolverAgent) IsAvailable(date string) bool {
	return !a.Unavailable[date]
}

// CanWork 检查能否承担时槽
func (a *SolverAgent) CanWork(slot Slot) bool {
	return a.IsQualified(slot.UnitID) && a.IsAvailable(slot.Date)
}

// BuildSolverAgents 构建求解用人员，按 ID 排序
// 缺勤与请假日计为不可用；未知人员的日类型记录忽略
func BuildSolverAgents(agents []model.Agent, days []model.AgentDay) []SolverAgent {
	index := make(map[int64]int, len(agents))
	out := make([]SolverAgent, 0, len(agents))
	for _, a := range agents {
		if i, ok := index[a.ID]; ok {
			for _, q := range a.Qualifications {
				out[i].QualifiedUnits[q.UnitID] = true
			}
			continue
		}
		sa := SolverAgent{
			ID:             a.ID,
			QualifiedUnits: make(map[int64]bool, len(a.Qualifications)),
			Unavailable:    make(map[string]bool),
		}
		for _, q := range a.Qualifications {
			sa.QualifiedUnits[q.UnitID] = true
		}
		index[a.ID] = len(out)
		out = append(out, sa)
	}

	for _, d := range days {
		i, ok := index[d.AgentID]
		if !ok || !d.Type.IsHardUnavailable() {
			continue
		}
		out[i].Unavailable[d.Date] = true
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
