// Package validator 独立复核求解结果与单日班段安排
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/planning/pkg/model"
	"github.com/paiban/planning/pkg/planning"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictUnknownSlot   ConflictType = "unknown_slot"   // 时槽不存在
	ConflictUnknownAgent  ConflictType = "unknown_agent"  // 人员不存在
	ConflictQualification ConflictType = "qualification"  // 不具备岗位资质
	ConflictAvailability  ConflictType = "availability"   // 当日不可用
	ConflictDoubleBooking ConflictType = "double_booking" // 同日多个时槽
	ConflictCoverage      ConflictType = "coverage"       // 覆盖守恒被破坏
	ConflictHardLock      ConflictType = "hard_lock"      // 硬锁定未被遵守
	ConflictConsecutive   ConflictType = "consecutive"    // 连续天数过多
	ConflictDayCombo      ConflictType = "day_combo"      // 单日班段组合不合法
	ConflictRestTime      ConflictType = "rest_time"      // 相邻两日休息不足
)

// Conflict 冲突信息
type Conflict struct {
	Type    ConflictType `json:"type"`
	AgentID int64        `json:"agent_id,omitempty"`
	SlotID  int          `json:"slot_id,omitempty"`
	Date    string       `json:"date,omitempty"`
	Message string       `json:"message"`
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	MaxConsecutiveDays int // <= 0 不检查
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{MaxConsecutiveDays: 0}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测解相对实例的所有硬约束冲突，按发现顺序返回
func (d *ConflictDetector) DetectAll(inst *planning.Instance, sol *planning.Solution) []Conflict {
	var conflicts []Conflict
	if sol == nil || !sol.IsUsable() {
		return conflicts
	}

	perSlot := make(map[int][]int64)
	byAgent := make(map[int64][]planning.Slot)

	for _, a := range sol.Assignments {
		slot, ok := inst.Slot(a.SlotID)
		if !ok {
			conflicts = append(conflicts, Conflict{
				Type:    ConflictUnknownSlot,
				AgentID: a.AgentID,
				SlotID:  a.SlotID,
				Message: fmt.Sprintf("分配引用了不存在的时槽 %d", a.SlotID),
			})
			continue
		}
		perSlot[a.SlotID] = append(perSlot[a.SlotID], a.AgentID)

		agent, ok := inst.Agent(a.AgentID)
		if !ok {
			conflicts = append(conflicts, Conflict{
				Type:    ConflictUnknownAgent,
				AgentID: a.AgentID,
				SlotID:  a.SlotID,
				Date:    slot.Date,
				Message: fmt.Sprintf("分配引用了不存在的人员 %d", a.AgentID),
			})
			continue
		}
		byAgent[a.AgentID] = append(byAgent[a.AgentID], slot)

		if !agent.IsQualified(slot.UnitID) {
			conflicts = append(conflicts, Conflict{
				Type:    ConflictQualification,
				AgentID: a.AgentID,
				SlotID:  a.SlotID,
				Date:    slot.Date,
				Message: fmt.Sprintf("人员 %d 不具备岗位 %d 资质", a.AgentID, slot.UnitID),
			})
		}
		if !agent.IsAvailable(slot.Date) {
			conflicts = append(conflicts, Conflict{
				Type:    ConflictAvailability,
				AgentID: a.AgentID,
				SlotID:  a.SlotID,
				Date:    slot.Date,
				Message: fmt.Sprintf("人员 %d 在 %s 不可用", a.AgentID, slot.Date),
			})
		}
	}

	conflicts = append(conflicts, d.detectCoverage(inst, sol, perSlot)...)

	agentIDs := make([]int64, 0, len(byAgent))
	for id := range byAgent {
		agentIDs = append(agentIDs, id)
	}
	sort.Slice(agentIDs, func(i, j int) bool { return agentIDs[i] < agentIDs[j] })
	for _, id := range agentIDs {
		conflicts = append(conflicts, d.detectDoubleBooking(id, byAgent[id])...)
		conflicts = append(conflicts, d.detectConsecutiveDaysViolations(id, byAgent[id])...)
	}
	return conflicts
}

// detectCoverage 每个时槽恰好一人或未覆盖；硬锁定时槽必须是指定人员
func (d *ConflictDetector) detectCoverage(inst *planning.Instance, sol *planning.Solution, perSlot map[int][]int64) []Conflict {
	var conflicts []Conflict
	uncovered := make(map[int]bool, len(sol.Uncovered))
	for _, id := range sol.Uncovered {
		uncovered[id] = true
	}

	for _, slot := range inst.Slots {
		agents := perSlot[slot.ID]
		count := len(agents)
		if uncovered[slot.ID] {
			count++
		}
		if count != 1 {
			conflicts = append(conflicts, Conflict{
				Type:    ConflictCoverage,
				SlotID:  slot.ID,
				Date:    slot.Date,
				Message: fmt.Sprintf("时槽 %d 分配 %d 人、未覆盖标记 %v", slot.ID, len(agents), uncovered[slot.ID]),
			})
		}

		lock := inst.Lock(slot.ID)
		if lock.Kind == planning.LockHard && (len(agents) != 1 || agents[0] != lock.AgentID || uncovered[slot.ID]) {
			conflicts = append(conflicts, Conflict{
				Type:    ConflictHardLock,
				AgentID: lock.AgentID,
				SlotID:  slot.ID,
				Date:    slot.Date,
				Message: fmt.Sprintf("时槽 %d 硬锁定人员 %d 未被分配", slot.ID, lock.AgentID),
			})
		}
	}
	return conflicts
}

// detectDoubleBooking 检测同日多个时槽
func (d *ConflictDetector) detectDoubleBooking(agentID int64, slots []planning.Slot) []Conflict {
	var conflicts []Conflict
	perDate := make(map[string]int)
	for _, s := range slots {
		perDate[s.Date]++
	}
	dates := make([]string, 0, len(perDate))
	for date := range perDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		if perDate[date] > 1 {
			conflicts = append(conflicts, Conflict{
				Type:    ConflictDoubleBooking,
				AgentID: agentID,
				Date:    date,
				Message: fmt.Sprintf("人员 %d 在 %s 被分配 %d 个时槽", agentID, date, perDate[date]),
			})
		}
	}
	return conflicts
}

// detectConsecutiveDaysViolations 检测连续工作天数
func (d *ConflictDetector) detectConsecutiveDaysViolations(agentID int64, slots []planning.Slot) []Conflict {
	var conflicts []Conflict
	if d.config.MaxConsecutiveDays <= 0 || len(slots) == 0 {
		return conflicts
	}

	// 获取工作日期
	workDates := make(map[string]bool)
	for _, s := range slots {
		workDates[s.Date] = true
	}
	dates := make([]string, 0, len(workDates))
	for date := range workDates {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	consecutive := 1
	startDate := dates[0]
	reported := false
	for i := 1; i < len(dates); i++ {
		if model.AddDays(dates[i-1], 1) == dates[i] {
			consecutive++
		} else {
			consecutive = 1
			startDate = dates[i]
			reported = false
		}
		if consecutive > d.config.MaxConsecutiveDays && !reported {
			reported = true
			conflicts = append(conflicts, Conflict{
				Type:    ConflictConsecutive,
				AgentID: agentID,
				Date:    startDate,
				Message: fmt.Sprintf("人员 %d 自 %s 起连续工作超过 %d 天", agentID, startDate, d.config.MaxConsecutiveDays),
			})
		}
	}
	return conflicts
}
