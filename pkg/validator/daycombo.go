package validator

import (
	"fmt"

	"github.com/paiban/planning/pkg/daycombo"
	"github.com/paiban/planning/pkg/model"
)

// DayPlan 某人连续若干日的班段安排，下标为日序；空集合表示休息日
type DayPlan struct {
	AgentID   int64     `json:"agent_id"`
	StartDate string    `json:"start_date"`
	Days      [][]int64 `json:"days"`
}

// DetectDayPlan 用岗位组合目录复核单日合法性与相邻两日的休息兼容
func (d *ConflictDetector) DetectDayPlan(cat *daycombo.Catalogue, plan DayPlan) []Conflict {
	var conflicts []Conflict
	prev := daycombo.RestDayID
	for i, segs := range plan.Days {
		date := model.AddDays(plan.StartDate, i)
		cur := daycombo.RestDayID
		if len(segs) > 0 {
			combo, ok := cat.Find(segs)
			if !ok {
				conflicts = append(conflicts, Conflict{
					Type:    ConflictDayCombo,
					AgentID: plan.AgentID,
					Date:    date,
					Message: fmt.Sprintf("班段 %v 不是岗位 %d 的合法单日组合", segs, cat.UnitID),
				})
				// 非法日无法判断休息，视为断开
				prev = daycombo.RestDayID
				continue
			}
			cur = combo.ID
		}
		if !cat.Rest.Compatible(prev, cur) {
			conflicts = append(conflicts, Conflict{
				Type:    ConflictRestTime,
				AgentID: plan.AgentID,
				Date:    date,
				Message: fmt.Sprintf("组合 %d 之后接组合 %d 休息不足", prev, cur),
			})
		}
		prev = cur
	}
	return conflicts
}
