package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/paiban/planning/internal/service"
	"github.com/paiban/planning/pkg/daycombo"
	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/model"
	"github.com/paiban/planning/pkg/planning"
	"github.com/paiban/planning/pkg/scheduler/engine"
)

// NeedInput 需求输入
type NeedInput struct {
	UnitID        int64  `json:"unit_id" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	TrancheID     int64  `json:"tranche_id" validate:"required"`
	RequiredCount int    `json:"required_count" validate:"gte=0,lte=1000"`
}

// AgentInput 人员输入
type AgentInput struct {
	ID    int64   `json:"id" validate:"required"`
	Name  string  `json:"name,omitempty"`
	Units []int64 `json:"units" validate:"dive,required"` // 具备资质的岗位
}

// AgentDayInput 人员日类型输入
type AgentDayInput struct {
	AgentID int64  `json:"agent_id" validate:"required"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Type    string `json:"type" validate:"required,oneof=work rest absence leave training"`
}

// TrancheInput 时段输入，unit_id 缺省表示未关联岗位
type TrancheInput struct {
	ID     int64  `json:"id" validate:"required"`
	UnitID int64  `json:"unit_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Start  string `json:"start,omitempty"` // HH:MM
	End    string `json:"end,omitempty"`   // HH:MM
}

// AssignmentInput 既有排班输入
type AssignmentInput struct {
	AgentID   int64  `json:"agent_id" validate:"required"`
	TrancheID int64  `json:"tranche_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
}

// HardLockInput 硬锁定输入
type HardLockInput struct {
	SlotID  int   `json:"slot_id" validate:"gte=0"`
	AgentID int64 `json:"agent_id" validate:"required"`
}

// SolveOptionsInput 求解参数输入
type SolveOptionsInput struct {
	TimeLimitMs        int           `json:"time_limit_ms,omitempty" validate:"omitempty,gte=1,lte=600000"`
	Workers            int           `json:"workers,omitempty" validate:"omitempty,gte=1,lte=64"`
	MaxConsecutiveDays *int          `json:"max_consecutive_days,omitempty" validate:"omitempty,gte=0,lte=31"`
	Seed               *int64        `json:"seed,omitempty"`
	Log                bool          `json:"log,omitempty"`
	Weights            *WeightsInput `json:"weights,omitempty"`
}

// WeightsInput 目标权重输入
type WeightsInput struct {
	Uncovered int64 `json:"uncovered" validate:"gte=0"`
	Change    int64 `json:"change" validate:"gte=0"`
}

// SolveInputRequest 内联实例求解请求
type SolveInputRequest struct {
	Mode             string             `json:"mode" validate:"required,oneof=PLAN REPAIR"`
	Needs            []NeedInput        `json:"needs" validate:"dive"`
	Agents           []AgentInput       `json:"agents" validate:"dive"`
	AgentDays        []AgentDayInput    `json:"agent_days,omitempty" validate:"dive"`
	Tranches         []TrancheInput     `json:"tranches,omitempty" validate:"dive"`
	PriorAssignments []AssignmentInput  `json:"prior_assignments,omitempty" validate:"dive"`
	HardLocks        []HardLockInput    `json:"hard_locks,omitempty" validate:"dive"`
	Options          *SolveOptionsInput `json:"options,omitempty"`
}

// SolveRangeRequest 按日期范围求解请求
type SolveRangeRequest struct {
	Mode      string             `json:"mode" validate:"required,oneof=PLAN REPAIR"`
	StartDate string             `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string             `json:"end_date" validate:"required,datetime=2006-01-02"`
	HardLocks []HardLockInput    `json:"hard_locks,omitempty" validate:"dive"`
	Options   *SolveOptionsInput `json:"options,omitempty"`
}

// SolveInput 对请求内联的实例求解
func (h *Handler) SolveInput(w http.ResponseWriter, r *http.Request) {
	var req SolveInputRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	in, err := req.toInstanceInput()
	if err != nil {
		respondError(w, r, err)
		return
	}

	out, err := h.service.SolveInput(r.Context(), in, req.Options.toSolveOptions())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// SolveRange 从数据库加载日期范围内的数据并求解
func (h *Handler) SolveRange(w http.ResponseWriter, r *http.Request) {
	var req SolveRangeRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	locks, err := toHardLocks(req.HardLocks)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out, err := h.service.SolveRange(r.Context(), service.SolveRequest{
		Mode:      planning.Mode(req.Mode),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		HardLocks: locks,
		Options:   req.Options.toSolveOptions(),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (req *SolveInputRequest) toInstanceInput() (planning.InstanceInput, error) {
	in := planning.InstanceInput{
		Mode:     planning.Mode(req.Mode),
		Tranches: make(map[int64]model.Tranche, len(req.Tranches)),
	}

	for _, n := range req.Needs {
		in.Needs = append(in.Needs, model.Need{
			UnitID:        n.UnitID,
			Date:          n.Date,
			TrancheID:     n.TrancheID,
			RequiredCount: n.RequiredCount,
		})
	}
	for _, a := range req.Agents {
		agent := model.Agent{ID: a.ID, Name: a.Name}
		for _, u := range a.Units {
			agent.Qualifications = append(agent.Qualifications, model.Qualification{UnitID: u})
		}
		in.Agents = append(in.Agents, agent)
	}
	for _, d := range req.AgentDays {
		in.AgentDays = append(in.AgentDays, model.AgentDay{AgentID: d.AgentID, Date: d.Date, Type: model.DayType(d.Type)})
	}
	for _, t := range req.Tranches {
		tranche := model.Tranche{ID: t.ID, UnitID: t.UnitID, Name: t.Name}
		var err error
		if t.Start != "" {
			if tranche.StartMinute, err = model.ParseClock(t.Start); err != nil {
				return in, apperrors.InvalidInput("tranches.start", err.Error())
			}
		}
		if t.End != "" {
			if tranche.EndMinute, err = model.ParseClock(t.End); err != nil {
				return in, apperrors.InvalidInput("tranches.end", err.Error())
			}
		}
		in.Tranches[t.ID] = tranche
	}
	for _, a := range req.PriorAssignments {
		in.PriorAssignments = append(in.PriorAssignments, model.Assignment{AgentID: a.AgentID, TrancheID: a.TrancheID, Date: a.Date})
	}

	locks, err := toHardLocks(req.HardLocks)
	if err != nil {
		return in, err
	}
	in.HardLocks = locks
	return in, nil
}

// toHardLocks 同一时槽只能锁定一次
func toHardLocks(locks []HardLockInput) (map[int]int64, error) {
	if len(locks) == 0 {
		return nil, nil
	}
	out := make(map[int]int64, len(locks))
	for _, l := range locks {
		if prev, ok := out[l.SlotID]; ok && prev != l.AgentID {
			return nil, apperrors.InvalidInput("hard_locks", fmt.Sprintf("时槽 %d 被重复锁定", l.SlotID))
		}
		out[l.SlotID] = l.AgentID
	}
	return out, nil
}

func (o *SolveOptionsInput) toSolveOptions() service.SolveOptions {
	if o == nil {
		return service.SolveOptions{}
	}
	opts := service.SolveOptions{
		TimeLimit:          time.Duration(o.TimeLimitMs) * time.Millisecond,
		Workers:            o.Workers,
		MaxConsecutiveDays: o.MaxConsecutiveDays,
		Seed:               o.Seed,
		Log:                o.Log,
	}
	if o.Weights != nil {
		opts.Weights = &engine.Weights{Uncovered: o.Weights.Uncovered, Change: o.Weights.Change}
	}
	return opts
}

// SegmentInput 班段输入
type SegmentInput struct {
	ID    int64  `json:"id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Start string `json:"start" validate:"required"` // HH:MM
	End   string `json:"end" validate:"required"`   // HH:MM，不晚于开始表示跨日
}

// RulesInput 组合规则输入（分钟），0 表示不限制
type RulesInput struct {
	MaxWorkMinutes      int `json:"max_work_minutes" validate:"gte=0"`
	MaxNightWorkMinutes int `json:"max_night_work_minutes" validate:"gte=0"`
	MaxAmplitudeMinutes int `json:"max_amplitude_minutes" validate:"gte=0"`
	MinRestMinutes      int `json:"min_rest_minutes" validate:"gte=0"`
	MinRestNightMinutes int `json:"min_rest_night_minutes" validate:"gte=0"`
}

// AnalyzeSegmentsRequest 班段组合分析请求
type AnalyzeSegmentsRequest struct {
	UnitID   int64          `json:"unit_id"`
	Segments []SegmentInput `json:"segments" validate:"required,min=1,max=32,dive"`
	Rules    *RulesInput    `json:"rules,omitempty"`
	MaxSize  int            `json:"max_size,omitempty" validate:"omitempty,gte=1,lte=6"`
}

func (req *AnalyzeSegmentsRequest) toSegments() ([]model.ShiftSegment, error) {
	segments := make([]model.ShiftSegment, 0, len(req.Segments))
	for _, s := range req.Segments {
		start, err := model.ParseClock(s.Start)
		if err != nil {
			return nil, apperrors.InvalidInput("segments.start", err.Error())
		}
		end, err := model.ParseClock(s.End)
		if err != nil {
			return nil, apperrors.InvalidInput("segments.end", err.Error())
		}
		segments = append(segments, model.ShiftSegment{
			ID:          s.ID,
			UnitID:      req.UnitID,
			Name:        s.Name,
			StartMinute: start,
			EndMinute:   end,
		})
	}
	return segments, nil
}

func (r *RulesInput) toRules() *daycombo.StandardRules {
	if r == nil {
		return nil
	}
	return &daycombo.StandardRules{
		MaxWorkMinutes:      r.MaxWorkMinutes,
		MaxNightWorkMinutes: r.MaxNightWorkMinutes,
		MaxAmplitudeMinutes: r.MaxAmplitudeMinutes,
		MinRestMinutes:      r.MinRestMinutes,
		MinRestNightMinutes: r.MinRestNightMinutes,
	}
}
