// Package stats 提供求解结果的统计与变更分析
package stats

import (
	"sort"

	"github.com/paiban/planning/pkg/planning"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖率
	TotalSlots      int     `json:"total_slots"`      // 总时槽数
	CoveredSlots    int     `json:"covered_slots"`    // 已覆盖时槽数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	// 按日期统计
	DailyCoverage map[string]DayCoverage `json:"daily_coverage"`

	// 按岗位统计
	UnitCoverage map[int64]float64 `json:"unit_coverage"`

	// 问题识别
	UncoveredSlots []UncoveredSlot     `json:"uncovered_slots"`
	Understaffed   []UnderstaffedGroup `json:"understaffed"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalSlots   int     `json:"total_slots"`
	Covered      int     `json:"covered"`
	CoverageRate float64 `json:"coverage_rate"`
	StaffCount   int     `json:"staff_count"` // 当日上班人数
}

// UncoveredSlot 未覆盖时槽
type UncoveredSlot struct {
	SlotID    int    `json:"slot_id"`
	UnitID    int64  `json:"unit_id"`
	Date      string `json:"date"`
	TrancheID int64  `json:"tranche_id"`
}

// UnderstaffedGroup 人手不足的 (岗位, 日期, 时段)
type UnderstaffedGroup struct {
	Key      planning.GroupKey `json:"key"`
	Required int               `json:"required"`
	Assigned int               `json:"assigned"`
	Shortage int               `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析求解结果的覆盖率
func (c *CoverageAnalyzer) Analyze(inst *planning.Instance, sol *planning.Solution) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage:  make(map[string]DayCoverage),
		UnitCoverage:   make(map[int64]float64),
		UncoveredSlots: []UncoveredSlot{},
		Understaffed:   []UnderstaffedGroup{},
	}
	if len(inst.Slots) == 0 {
		metrics.OverallCoverage = 100
		return metrics
	}

	// 构建分配映射
	assigned := make(map[int]int)
	staff := make(map[string]map[int64]bool)
	if sol != nil {
		for _, a := range sol.Assignments {
			slot, ok := inst.Slot(a.SlotID)
			if !ok {
				continue
			}
			assigned[a.SlotID]++
			if staff[slot.Date] == nil {
				staff[slot.Date] = make(map[int64]bool)
			}
			staff[slot.Date][a.AgentID] = true
		}
	}

	dailyStats := make(map[string]*DayCoverage)
	unitTotals := make(map[int64]int)
	unitCovered := make(map[int64]int)
	groupRequired := make(map[planning.GroupKey]int)
	groupAssigned := make(map[planning.GroupKey]int)

	for _, slot := range inst.Slots {
		isCovered := assigned[slot.ID] > 0
		metrics.TotalSlots++
		if isCovered {
			metrics.CoveredSlots++
		} else {
			metrics.UncoveredSlots = append(metrics.UncoveredSlots, UncoveredSlot{
				SlotID:    slot.ID,
				UnitID:    slot.UnitID,
				Date:      slot.Date,
				TrancheID: slot.TrancheID,
			})
		}

		// 日期统计
		day, exists := dailyStats[slot.Date]
		if !exists {
			day = &DayCoverage{Date: slot.Date, StaffCount: len(staff[slot.Date])}
			dailyStats[slot.Date] = day
		}
		day.TotalSlots++
		if isCovered {
			day.Covered++
		}

		// 岗位统计
		unitTotals[slot.UnitID]++
		if isCovered {
			unitCovered[slot.UnitID]++
		}

		groupRequired[slot.Key()]++
		if isCovered {
			groupAssigned[slot.Key()]++
		}
	}

	metrics.OverallCoverage = float64(metrics.CoveredSlots) / float64(metrics.TotalSlots) * 100

	for date, stats := range dailyStats {
		stats.CoverageRate = float64(stats.Covered) / float64(stats.TotalSlots) * 100
		metrics.DailyCoverage[date] = *stats
	}

	for unitID, total := range unitTotals {
		metrics.UnitCoverage[unitID] = float64(unitCovered[unitID]) / float64(total) * 100
	}

	for key, required := range groupRequired {
		if got := groupAssigned[key]; got < required {
			metrics.Understaffed = append(metrics.Understaffed, UnderstaffedGroup{
				Key:      key,
				Required: required,
				Assigned: got,
				Shortage: required - got,
			})
		}
	}
	sort.Slice(metrics.Understaffed, func(i, j int) bool {
		return metrics.Understaffed[i].Key.Less(metrics.Understaffed[j].Key)
	})

	return metrics
}
