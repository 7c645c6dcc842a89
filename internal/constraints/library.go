// Package constraints 描述求解引擎与组合分析实际执行的约束
package constraints

import (
	"strconv"

	"github.com/paiban/planning/internal/config"
	"github.com/paiban/planning/pkg/daycombo"
	"github.com/paiban/planning/pkg/planning"
	"github.com/paiban/planning/pkg/scheduler/engine"
)

// 约束类别
const (
	TypeHard = "hard"
	TypeSoft = "soft"

	ScopePlanning = "planning" // 时槽分配求解
	ScopeDayCombo = "daycombo" // 单日班段组合与休息兼容
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, duration, bool
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
	Env         string `json:"env,omitempty"` // 对应的环境变量
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`  // hard 硬约束, soft 目标项
	Scope       string            `json:"scope"` // planning / daycombo
	Description string            `json:"description"`
	Modes       []string          `json:"modes,omitempty"` // 仅对求解约束有效
	Params      []ConstraintParam `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// Library 按当前配置生成约束库，默认值即服务实际使用的值
func Library(solver config.SolverConfig, rules daycombo.StandardRules, maxSize int) []ConstraintDefinition {
	bothModes := []string{string(planning.ModePlan), string(planning.ModeRepair)}
	plan := engine.DefaultWeights(planning.ModePlan)
	repair := engine.DefaultWeights(planning.ModeRepair)

	return []ConstraintDefinition{
		{
			Name:        "coverage",
			DisplayName: "时槽覆盖",
			Type:        TypeHard,
			Scope:       ScopePlanning,
			Description: "每个时槽恰好由一名人员覆盖，或记为未覆盖。",
			Modes:       bothModes,
			Params:      []ConstraintParam{},
		},
		{
			Name:        "qualification",
			DisplayName: "岗位资质",
			Type:        TypeHard,
			Scope:       ScopePlanning,
			Description: "只允许具备岗位资质的人员覆盖该岗位的时槽。",
			Modes:       bothModes,
			Params:      []ConstraintParam{},
		},
		{
			Name:        "availability",
			DisplayName: "当日可用",
			Type:        TypeHard,
			Scope:       ScopePlanning,
			Description: "缺勤与请假的日期不安排任何时槽。",
			Modes:       bothModes,
			Params:      []ConstraintParam{},
		},
		{
			Name:        "one_slot_per_day",
			DisplayName: "每日至多一个时槽",
			Type:        TypeHard,
			Scope:       ScopePlanning,
			Description: "同一人员同一日期最多覆盖一个时槽。",
			Modes:       bothModes,
			Params:      []ConstraintParam{},
		},
		{
			Name:        "hard_lock",
			DisplayName: "硬锁定",
			Type:        TypeHard,
			Scope:       ScopePlanning,
			Description: "被锁定的时槽必须由指定人员覆盖；指定人员不可用时请求失败。",
			Modes:       bothModes,
			Params:      []ConstraintParam{},
		},
		{
			Name:        "max_consecutive_days",
			DisplayName: "最大连续工作天数",
			Type:        TypeHard,
			Scope:       ScopePlanning,
			Description: "任意连续 K+1 个日历日内最多工作 K 天，0 表示不限制。",
			Modes:       bothModes,
			Params: []ConstraintParam{
				{Name: "max_consecutive_days", Type: "int", Description: "最大连续天数", Default: strconv.Itoa(solver.MaxConsecutiveDays), Min: "0", Max: "31", Env: "SOLVER_MAX_CONSECUTIVE_DAYS"},
			},
		},
		{
			Name:        "uncovered_penalty",
			DisplayName: "未覆盖惩罚",
			Type:        TypeSoft,
			Scope:       ScopePlanning,
			Description: "每个未覆盖时槽计入目标的权重。",
			Modes:       bothModes,
			Params: []ConstraintParam{
				{Name: "uncovered_plan", Type: "int", Description: "计划模式权重", Default: strconv.FormatInt(plan.Uncovered, 10), Min: "0"},
				{Name: "uncovered_repair", Type: "int", Description: "修复模式权重", Default: strconv.FormatInt(repair.Uncovered, 10), Min: "0"},
			},
		},
		{
			Name:        "change_penalty",
			DisplayName: "基线变更惩罚",
			Type:        TypeSoft,
			Scope:       ScopePlanning,
			Description: "修复模式下，每名离开原分组的基线人员计入目标的权重。",
			Modes:       []string{string(planning.ModeRepair)},
			Params: []ConstraintParam{
				{Name: "change", Type: "int", Description: "修复模式权重", Default: strconv.FormatInt(repair.Change, 10), Min: "0"},
			},
		},
		{
			Name:        "solver_limits",
			DisplayName: "求解限制",
			Type:        TypeSoft,
			Scope:       ScopePlanning,
			Description: "求解时间上限与并行搜索数；超时返回当前最优可行解。",
			Modes:       bothModes,
			Params: []ConstraintParam{
				{Name: "time_limit_ms", Type: "duration", Description: "求解时间上限", Default: strconv.FormatInt(solver.TimeLimit.Milliseconds(), 10), Min: "1", Max: strconv.FormatInt(solver.MaxTimeLimit.Milliseconds(), 10), Env: "SOLVER_TIME_LIMIT"},
				{Name: "workers", Type: "int", Description: "并行搜索数", Default: strconv.Itoa(solver.Workers), Min: "1", Max: "64", Env: "SOLVER_WORKERS"},
			},
		},
		{
			Name:        "day_work",
			DisplayName: "单日工作时长",
			Type:        TypeHard,
			Scope:       ScopeDayCombo,
			Description: "单日组合的工作分钟数上限，含夜间工作时使用夜班上限；低于最短工作时长的组合一律丢弃。",
			Params: []ConstraintParam{
				{Name: "max_work_minutes", Type: "int", Description: "日间上限(分钟)", Default: strconv.Itoa(rules.MaxWorkMinutes), Min: "0", Env: "DAYCOMBO_MAX_WORK"},
				{Name: "max_night_work_minutes", Type: "int", Description: "夜班上限(分钟)", Default: strconv.Itoa(rules.MaxNightWorkMinutes), Min: "0", Env: "DAYCOMBO_MAX_NIGHT_WORK"},
				{Name: "min_work_minutes", Type: "int", Description: "最短工作时长(分钟)，不可配置", Default: strconv.Itoa(daycombo.AbsoluteMinWorkMinutes)},
			},
		},
		{
			Name:        "day_amplitude",
			DisplayName: "单日跨度",
			Type:        TypeHard,
			Scope:       ScopeDayCombo,
			Description: "单日组合从最早开始到最晚结束的分钟数上限。",
			Params: []ConstraintParam{
				{Name: "max_amplitude_minutes", Type: "int", Description: "跨度上限(分钟)", Default: strconv.Itoa(rules.MaxAmplitudeMinutes), Min: "0", Env: "DAYCOMBO_MAX_AMPLITUDE"},
			},
		},
		{
			Name:        "combo_size",
			DisplayName: "单日班段数",
			Type:        TypeHard,
			Scope:       ScopeDayCombo,
			Description: "单日组合最多包含的班段数，0 表示不限制。",
			Params: []ConstraintParam{
				{Name: "max_size", Type: "int", Description: "班段数上限", Default: strconv.Itoa(maxSize), Min: "0", Max: "6", Env: "DAYCOMBO_MAX_SIZE"},
			},
		},
		{
			Name:        "min_rest",
			DisplayName: "相邻两日最小休息",
			Type:        TypeHard,
			Scope:       ScopeDayCombo,
			Description: "前一日组合结束到后一日组合开始的间隔下限，任一日含夜间工作时使用夜班下限。",
			Params: []ConstraintParam{
				{Name: "min_rest_minutes", Type: "int", Description: "日间下限(分钟)", Default: strconv.Itoa(rules.MinRestMinutes), Min: "0", Env: "DAYCOMBO_MIN_REST"},
				{Name: "min_rest_night_minutes", Type: "int", Description: "夜班下限(分钟)", Default: strconv.Itoa(rules.MinRestNightMinutes), Min: "0", Env: "DAYCOMBO_MIN_NIGHT_REST"},
			},
		},
	}
}

// ByScope 按作用域筛选约束
func ByScope(library []ConstraintDefinition, scope string) []ConstraintDefinition {
	var result []ConstraintDefinition
	for _, c := range library {
		if c.Scope == scope {
			result = append(result, c)
		}
	}
	return result
}

// ByType 按类型筛选约束
func ByType(library []ConstraintDefinition, constraintType string) []ConstraintDefinition {
	var result []ConstraintDefinition
	for _, c := range library {
		if c.Type == constraintType {
			result = append(result, c)
		}
	}
	return result
}
