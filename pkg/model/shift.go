// Package model 定义排班引擎的核心数据模型
package model

// Unit 岗位（工作站），拥有自己的时段和资质要求
type Unit struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Code string `json:"code,omitempty" db:"code"`
}

// Tranche 时段定义，隶属于某个岗位
type Tranche struct {
	ID          int64  `json:"id" db:"id"`
	UnitID      int64  `json:"unit_id" db:"unit_id"` // 0 表示未关联岗位
	Name        string `json:"name" db:"name"`
	StartMinute int    `json:"start_minute" db:"start_minute"`
	EndMinute   int    `json:"end_minute" db:"end_minute"`
}

// ShiftSegment 班段：岗位提供的一个 [start, end) 工作区间
// EndMinute 可以超过 1440 表示跨越午夜；EndMinute <= StartMinute 同样视为跨日
type ShiftSegment struct {
	ID          int64  `json:"id" db:"id"`
	UnitID      int64  `json:"unit_id" db:"unit_id"`
	Name        string `json:"name,omitempty" db:"name"`
	StartMinute int    `json:"start_minute" db:"start_minute"`
	EndMinute   int    `json:"end_minute" db:"end_minute"`
}

// Normalized 返回归一化后的绝对分钟区间
func (s ShiftSegment) Normalized() (start, end int) {
	start, end = s.StartMinute, s.EndMinute
	if end <= start {
		end += MinutesPerDay
	}
	return start, end
}

// DurationMinutes 班段时长（分钟）
func (s ShiftSegment) DurationMinutes() int {
	start, end := s.Normalized()
	return end - start
}

// CrossesMidnight 检查班段是否跨越午夜
func (s ShiftSegment) CrossesMidnight() bool {
	_, end := s.Normalized()
	return end > MinutesPerDay
}

// Need 某岗位某日某时段的需求人数
type Need struct {
	UnitID        int64  `json:"unit_id" db:"unit_id"`
	Date          string `json:"date" db:"date"` // YYYY-MM-DD
	TrancheID     int64  `json:"tranche_id" db:"tranche_id"`
	RequiredCount int    `json:"required_count" db:"required_count"`
}

// Assignment 既有排班（修复模式下的基线）
type Assignment struct {
	AgentID   int64  `json:"agent_id" db:"agent_id"`
	TrancheID int64  `json:"tranche_id" db:"tranche_id"`
	Date      string `json:"date" db:"date"`
}
