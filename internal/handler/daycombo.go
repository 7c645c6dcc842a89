package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/validator"
)

// ValidateDayPlansRequest 逐日班段安排复核请求
type ValidateDayPlansRequest struct {
	Plans []DayPlanInput `json:"plans" validate:"required,min=1,dive"`
}

// DayPlanInput 某人连续若干日的班段安排
type DayPlanInput struct {
	AgentID   int64     `json:"agent_id" validate:"required"`
	StartDate string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	Days      [][]int64 `json:"days" validate:"required,min=1"`
}

// AnalyzeSegments 分析请求中内联的班段
func (h *Handler) AnalyzeSegments(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeSegmentsRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	segments, err := req.toSegments()
	if err != nil {
		respondError(w, r, err)
		return
	}

	cat, err := h.service.AnalyzeSegments(r.Context(), req.UnitID, segments, req.Rules.toRules(), req.MaxSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

// UnitDayCombos 返回岗位的组合目录
func (h *Handler) UnitDayCombos(w http.ResponseWriter, r *http.Request) {
	unitID, err := unitIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	cats, err := h.service.DayCombos(r.Context(), []int64{unitID})
	if err != nil {
		respondError(w, r, err)
		return
	}
	cat := cats[unitID]
	if cat == nil || len(cat.Combinations) == 0 {
		respondError(w, r, apperrors.NotFound("岗位组合目录", strconv.FormatInt(unitID, 10)))
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

// ValidateDayPlans 复核人员逐日班段安排的单日合法性与休息间隔
func (h *Handler) ValidateDayPlans(w http.ResponseWriter, r *http.Request) {
	unitID, err := unitIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req ValidateDayPlansRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	plans := make([]validator.DayPlan, 0, len(req.Plans))
	for _, p := range req.Plans {
		plans = append(plans, validator.DayPlan{AgentID: p.AgentID, StartDate: p.StartDate, Days: p.Days})
	}

	conflicts, err := h.service.ValidateDayPlans(r.Context(), unitID, plans)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     len(conflicts) == 0,
		"conflicts": conflicts,
	})
}

func unitIDParam(r *http.Request) (int64, error) {
	unitID, err := strconv.ParseInt(chi.URLParam(r, "unitID"), 10, 64)
	if err != nil || unitID <= 0 {
		return 0, apperrors.InvalidInput("unitID", "岗位ID无效")
	}
	return unitID, nil
}
