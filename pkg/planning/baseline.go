package planning

import (
	"fmt"
	"sort"

	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/model"
)

// BaselineGroup 修复模式下某 (岗位, 日期, 时段) 的既有人员集合
type BaselineGroup struct {
	Key      GroupKey `json:"key"`
	AgentIDs []int64  `json:"agent_ids"` // 升序、去重
}

// Contains 检查人员是否在基线中
func (g BaselineGroup) Contains(agentID int64) bool {
	i := sort.Search(len(g.AgentIDs), func(i int) bool { return g.AgentIDs[i] >= agentID })
	return i < len(g.AgentIDs) && g.AgentIDs[i] == agentID
}

// BuildBaselineGroups 按 (岗位, 日期, 时段) 分组既有排班
// 时段无法解析到所属岗位时返回数据完整性错误
func BuildBaselineGroups(assignments []model.Assignment, tranches map[int64]model.Tranche) ([]BaselineGroup, error) {
	members := make(map[GroupKey]map[int64]bool)
	for _, a := range assignments {
		tr, ok := tranches[a.TrancheID]
		if !ok {
			return nil, apperrors.DataIntegrity(fmt.Sprintf("人员 %d 在 %s 的排班引用了不存在的时段 %d", a.AgentID, a.Date, a.TrancheID))
		}
		if tr.UnitID == 0 {
			return nil, apperrors.DataIntegrity(fmt.Sprintf("时段 %d 未关联岗位", a.TrancheID))
		}
		key := GroupKey{UnitID: tr.UnitID, Date: a.Date, TrancheID: a.TrancheID}
		if members[key] == nil {
			members[key] = make(map[int64]bool)
		}
		members[key][a.AgentID] = true
	}

	groups := make([]BaselineGroup, 0, len(members))
	for key, set := range members {
		ids := make([]int64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, BaselineGroup{Key: key, AgentIDs: ids})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key.Less(groups[j].Key) })
	return groups, nil
}
