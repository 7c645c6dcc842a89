// Package planning 将需求、人员与既有排班构建为确定性的求解实例
package planning

import (
	"fmt"
	"sort"

	"github.com/paiban/planning/pkg/model"
)

// Mode 求解模式
type Mode string

const (
	ModePlan   Mode = "PLAN"   // 全新排班
	ModeRepair Mode = "REPAIR" // 修复既有排班，惩罚基线变动
)

// Valid 检查模式是否合法
func (m Mode) Valid() bool {
	return m == ModePlan || m == ModeRepair
}

// GroupKey (岗位, 日期, 时段) 分组键
type GroupKey struct {
	UnitID    int64  `json:"unit_id"`
	Date      string `json:"date"`
	TrancheID int64  `json:"tranche_id"`
}

// Less 按 (日期, 岗位, 时段) 排序
func (k GroupKey) Less(other GroupKey) bool {
	if k.Date != other.Date {
		return k.Date < other.Date
	}
	if k.UnitID != other.UnitID {
		return k.UnitID < other.UnitID
	}
	return k.TrancheID < other.TrancheID
}

// String 实现 fmt.Stringer
func (k GroupKey) String() string {
	return fmt.Sprintf("%s/u%d/t%d", k.Date, k.UnitID, k.TrancheID)
}

// Slot 一个需求单位：某日某时段某岗位的一个人
type Slot struct {
	ID        int    `json:"id"`
	UnitID    int64  `json:"unit_id"`
	Date      string `json:"date"`
	TrancheID int64  `json:"tranche_id"`
}

// Key 返回时槽的分组键
func (s Slot) Key() GroupKey {
	return GroupKey{UnitID: s.UnitID, Date: s.Date, TrancheID: s.TrancheID}
}

// ExpandNeedsToSlots 将需求展开为时槽
//
// 需求按 (日期, 岗位, 时段) 稳定排序，required_count <= 0 的需求跳过，
// 时槽 ID 按此顺序从 0 连续分配。相同输入总是得到相同的 ID。
func ExpandNeedsToSlots(needs []model.Need) []Slot {
	sorted := make([]model.Need, len(needs))
	copy(sorted, needs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki := GroupKey{UnitID: sorted[i].UnitID, Date: sorted[i].Date, TrancheID: sorted[i].TrancheID}
		kj := GroupKey{UnitID: sorted[j].UnitID, Date: sorted[j].Date, TrancheID: sorted[j].TrancheID}
		return ki.Less(kj)
	})

	slots := make([]Slot, 0)
	for _, n := range sorted {
		for i := 0; i < n.RequiredCount; i++ {
			slots = append(slots, Slot{
				ID:        len(slots),
				UnitID:    n.UnitID,
				Date:      n.Date,
				TrancheID: n.TrancheID,
			})
		}
	}
	return slots
}
