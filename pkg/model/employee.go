// Package model 定义排班引擎的核心数据模型
package model

// DayType 人员某日的日类型
type DayType string

const (
	DayWork     DayType = "work"     // 工作
	DayRest     DayType = "rest"     // 休息
	DayAbsence  DayType = "absence"  // 缺勤
	DayLeave    DayType = "leave"    // 请假
	DayTraining DayType = "training" // 培训
)

// IsHardUnavailable 检查该日类型是否使人员完全不可排
func (t DayType) IsHardUnavailable() bool {
	return t == DayAbsence || t == DayLeave
}

// Agent 人员
type Agent struct {
	ID             int64           `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Qualifications []Qualification `json:"qualifications,omitempty" db:"-"`
}

// Qualification 人员在某岗位上的资质
type Qualification struct {
	UnitID int64 `json:"unit_id" db:"unit_id"`
}

// AgentDay 人员某日的日类型记录
type AgentDay struct {
	AgentID int64   `json:"agent_id" db:"agent_id"`
	Date    string  `json:"date" db:"date"`
	Type    DayType `json:"type" db:"type"`
}

// IsQualified 检查人员是否持有某岗位资质
func (a *Agent) IsQualified(unitID int64) bool {
	for _, q := range a.Qualifications {
		if q.UnitID == unitID {
			return true
		}
	}
	return false
}
