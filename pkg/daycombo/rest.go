package daycombo

import (
	"encoding/json"
	"sort"

	"github.com/paiban/planning/pkg/model"
)

// RestDayID 休息日的组合ID，与任何组合相邻都兼容
const RestDayID = -1

// RestCompatible 检查 prev 之后次日接 cur 是否满足最短休息
// 任一方为空组合（休息日）时总是兼容
func RestCompatible(prev, cur DayCombination, rules Rules) bool {
	if prev.IsRestDay() || cur.IsRestDay() {
		return true
	}
	rest := (cur.Start + model.MinutesPerDay) - prev.End
	return rest >= rules.MinRestRequired(prev.Night || cur.Night)
}

type pair struct {
	prev int
	cur  int
}

// RestMatrix 组合有序对的休息兼容关系，O(1) 查询
type RestMatrix struct {
	pairs map[pair]struct{}
}

// ComputeRestCompatibility 计算所有有序对（含自身相邻）的兼容关系
func ComputeRestCompatibility(combos []DayCombination, rules Rules) *RestMatrix {
	m := &RestMatrix{pairs: make(map[pair]struct{})}
	for _, prev := range combos {
		for _, cur := range combos {
			if RestCompatible(prev, cur, rules) {
				m.pairs[pair{prev.ID, cur.ID}] = struct{}{}
			}
		}
	}
	return m
}

// Compatible 查询 prevID 之后接 curID 是否兼容
func (m *RestMatrix) Compatible(prevID, curID int) bool {
	if prevID == RestDayID || curID == RestDayID {
		return true
	}
	if m == nil {
		return false
	}
	_, ok := m.pairs[pair{prevID, curID}]
	return ok
}

// Len 兼容对数量
func (m *RestMatrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// Pairs 返回按 (prev, cur) 排序的兼容对
func (m *RestMatrix) Pairs() [][2]int {
	out := make([][2]int, 0, m.Len())
	if m == nil {
		return out
	}
	for p := range m.pairs {
		out = append(out, [2]int{p.prev, p.cur})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// MarshalJSON 序列化为有序的 [prev, cur] 列表
func (m *RestMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Pairs())
}

// UnmarshalJSON 实现 json.Unmarshaler
func (m *RestMatrix) UnmarshalJSON(data []byte) error {
	var list [][2]int
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	m.pairs = make(map[pair]struct{}, len(list))
	for _, p := range list {
		m.pairs[pair{p[0], p[1]}] = struct{}{}
	}
	return nil
}
