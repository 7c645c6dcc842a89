package validator

import (
	"testing"

	"github.com/paiban/planning/pkg/daycombo"
	"github.com/paiban/planning/pkg/model"
	"github.com/paiban/planning/pkg/planning"
)

// testInstance 岗位 1 连续 4 天每天 1 人，第一天另有 1 个硬锁定时槽（岗位 2）
func testInstance(t *testing.T) *planning.Instance {
	t.Helper()
	needs := []model.Need{{UnitID: 2, Date: "2026-01-11", TrancheID: 2, RequiredCount: 1}}
	for _, d := range []string{"2026-01-11", "2026-01-12", "2026-01-13", "2026-01-14"} {
		needs = append(needs, model.Need{UnitID: 1, Date: d, TrancheID: 1, RequiredCount: 1})
	}
	inst, err := planning.BuildInstance(planning.InstanceInput{
		Mode:  planning.ModePlan,
		Needs: needs,
		Agents: []model.Agent{
			{ID: 1, Qualifications: []model.Qualification{{UnitID: 1}}},
			{ID: 2, Qualifications: []model.Qualification{{UnitID: 1}, {UnitID: 2}}},
		},
		AgentDays: []model.AgentDay{{AgentID: 1, Date: "2026-01-14", Type: model.DayAbsence}},
		HardLocks: map[int]int64{1: 2},
	})
	if err != nil {
		t.Fatalf("BuildInstance() error = %v", err)
	}
	// 时槽: 0 = 11日岗位1；1 = 11日岗位2（锁定人员 2）；2,3,4 = 12-14日岗位1
	return inst
}

func TestConflictDetector_Valid(t *testing.T) {
	inst := testInstance(t)
	sol := &planning.Solution{
		Status: planning.StatusOptimal,
		Assignments: []planning.Assignment{
			{AgentID: 1, SlotID: 0},
			{AgentID: 2, SlotID: 1},
			{AgentID: 1, SlotID: 2},
			{AgentID: 1, SlotID: 3},
			{AgentID: 2, SlotID: 4},
		},
	}

	conflicts := NewConflictDetector(&DetectorConfig{MaxConsecutiveDays: 3}).DetectAll(inst, sol)
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts))
		for _, c := range conflicts {
			t.Logf("Conflict: %s", c.Message)
		}
	}
}

func TestConflictDetector_Violations(t *testing.T) {
	tests := []struct {
		name        string
		assignments []planning.Assignment
		uncovered   []int
		config      *DetectorConfig
		want        ConflictType
	}{
		{
			name:        "不具备资质",
			assignments: []planning.Assignment{{AgentID: 1, SlotID: 1}},
			uncovered:   []int{0, 2, 3, 4},
			want:        ConflictQualification,
		},
		{
			name:        "不可用",
			assignments: []planning.Assignment{{AgentID: 2, SlotID: 1}, {AgentID: 1, SlotID: 4}},
			uncovered:   []int{0, 2, 3},
			want:        ConflictAvailability,
		},
		{
			name:        "同日多个时槽",
			assignments: []planning.Assignment{{AgentID: 2, SlotID: 0}, {AgentID: 2, SlotID: 1}},
			uncovered:   []int{2, 3, 4},
			want:        ConflictDoubleBooking,
		},
		{
			name:        "时槽既覆盖又未覆盖",
			assignments: []planning.Assignment{{AgentID: 2, SlotID: 1}, {AgentID: 1, SlotID: 0}},
			uncovered:   []int{0, 2, 3, 4},
			want:        ConflictCoverage,
		},
		{
			name:        "硬锁定未遵守",
			assignments: []planning.Assignment{},
			uncovered:   []int{0, 1, 2, 3, 4},
			want:        ConflictHardLock,
		},
		{
			name:        "未知时槽",
			assignments: []planning.Assignment{{AgentID: 2, SlotID: 1}, {AgentID: 1, SlotID: 42}},
			uncovered:   []int{0, 2, 3, 4},
			want:        ConflictUnknownSlot,
		},
		{
			name:        "未知人员",
			assignments: []planning.Assignment{{AgentID: 2, SlotID: 1}, {AgentID: 9, SlotID: 0}},
			uncovered:   []int{2, 3, 4},
			want:        ConflictUnknownAgent,
		},
		{
			name: "连续天数过多",
			assignments: []planning.Assignment{
				{AgentID: 2, SlotID: 1}, {AgentID: 1, SlotID: 0},
				{AgentID: 1, SlotID: 2}, {AgentID: 1, SlotID: 3},
			},
			uncovered: []int{4},
			config:    &DetectorConfig{MaxConsecutiveDays: 2},
			want:      ConflictConsecutive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := testInstance(t)
			sol := &planning.Solution{Status: planning.StatusFeasible, Assignments: tt.assignments, Uncovered: tt.uncovered}
			conflicts := NewConflictDetector(tt.config).DetectAll(inst, sol)

			found := false
			for _, c := range conflicts {
				if c.Type == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("期望检测到 %s 冲突, got %+v", tt.want, conflicts)
			}
		})
	}
}

func TestConflictDetector_UnusableSolution(t *testing.T) {
	inst := testInstance(t)
	conflicts := NewConflictDetector(nil).DetectAll(inst, planning.EmptySolution(planning.StatusInfeasible))
	if len(conflicts) != 0 {
		t.Errorf("无解结果不应检测冲突, got %d", len(conflicts))
	}
}

func TestConflictDetector_DetectDayPlan(t *testing.T) {
	segs := []model.ShiftSegment{
		{ID: 1, UnitID: 1, StartMinute: 480, EndMinute: 720},   // 08:00-12:00
		{ID: 2, UnitID: 1, StartMinute: 780, EndMinute: 1020},  // 13:00-17:00
		{ID: 3, UnitID: 1, StartMinute: 1320, EndMinute: 360},  // 22:00-06:00
	}
	cat := daycombo.Analyze(1, segs, daycombo.DefaultRules(), 0)
	detector := NewConflictDetector(nil)

	tests := []struct {
		name  string
		days  [][]int64
		types []ConflictType
	}{
		{"白班接夜班", [][]int64{{1, 2}, {3}}, nil},
		{"夜班接白班休息不足", [][]int64{{3}, {1, 2}}, []ConflictType{ConflictRestTime}},
		{"夜班-休息-白班", [][]int64{{3}, {}, {1, 2}}, nil},
		{"非法单日组合", [][]int64{{1}, {3}}, []ConflictType{ConflictDayCombo}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := detector.DetectDayPlan(cat, DayPlan{AgentID: 7, StartDate: "2026-01-11", Days: tt.days})
			if len(conflicts) != len(tt.types) {
				t.Fatalf("conflicts = %+v, want %v", conflicts, tt.types)
			}
			for i, c := range conflicts {
				if c.Type != tt.types[i] {
					t.Errorf("conflicts[%d].Type = %s, want %s", i, c.Type, tt.types[i])
				}
			}
		})
	}
}
