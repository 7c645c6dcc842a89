package daycombo

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/paiban/planning/pkg/model"
)

// Interval 组合内一个班段在时间轴上的绝对位置（分钟，可跨多日）
type Interval struct {
	SegmentID int64 `json:"segment_id"`
	Start     int   `json:"start"`
	End       int   `json:"end"`
}

// DayCombination 合法的单日班段组合
type DayCombination struct {
	ID               int        `json:"id"`
	SegmentIDs       []int64    `json:"segment_ids"` // 升序
	Intervals        []Interval `json:"intervals"`   // 按时间轴顺序
	Start            int        `json:"start"`
	End              int        `json:"end"`
	WorkMinutes      int        `json:"work_minutes"`
	AmplitudeMinutes int        `json:"amplitude_minutes"`
	Night            bool       `json:"night"`
}

// IsRestDay 空组合表示休息日
func (c DayCombination) IsRestDay() bool {
	return len(c.SegmentIDs) == 0
}

// Key 返回班段ID集合的规范键
func (c DayCombination) Key() string {
	return segmentKey(c.SegmentIDs)
}

// Equal 两个组合的班段ID集合相同即相等
func (c DayCombination) Equal(other DayCombination) bool {
	if len(c.SegmentIDs) != len(other.SegmentIDs) {
		return false
	}
	for i := range c.SegmentIDs {
		if c.SegmentIDs[i] != other.SegmentIDs[i] {
			return false
		}
	}
	return true
}

func segmentKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// canonical 去重并按 (start, end, id) 排序
func canonical(segments []model.ShiftSegment) []model.ShiftSegment {
	seen := make(map[int64]bool, len(segments))
	out := make([]model.ShiftSegment, 0, len(segments))
	for _, s := range segments {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, ei := out[i].Normalized()
		sj, ej := out[j].Normalized()
		if si != sj {
			return si < sj
		}
		if ei != ej {
			return ei < ej
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Layout 计算一组班段的时间轴布局与派生属性，不做合法性判断
//
// 按规范顺序依次放置班段，起点早于当前游标终点的班段整日后移直到不再重叠。
// 工时为各班段时长之和，幅度为最晚结束减最早开始。
func Layout(segments []model.ShiftSegment) DayCombination {
	return layoutSorted(canonical(segments))
}

func layoutSorted(sorted []model.ShiftSegment) DayCombination {
	combo := DayCombination{
		SegmentIDs: make([]int64, 0, len(sorted)),
		Intervals:  make([]Interval, 0, len(sorted)),
	}
	if len(sorted) == 0 {
		return combo
	}

	cursor := 0
	for i, seg := range sorted {
		start, end := seg.Normalized()
		if i > 0 {
			for start < cursor {
				start += model.MinutesPerDay
				end += model.MinutesPerDay
			}
		}
		cursor = end

		combo.Intervals = append(combo.Intervals, Interval{SegmentID: seg.ID, Start: start, End: end})
		combo.SegmentIDs = append(combo.SegmentIDs, seg.ID)
		combo.WorkMinutes += end - start
		if i == 0 || start < combo.Start {
			combo.Start = start
		}
		if end > combo.End {
			combo.End = end
		}
		if overlapsNight(start, end) {
			combo.Night = true
		}
	}

	sort.Slice(combo.SegmentIDs, func(i, j int) bool { return combo.SegmentIDs[i] < combo.SegmentIDs[j] })
	combo.AmplitudeMinutes = combo.End - combo.Start
	return combo
}

// overlapsNight 检查 [start, end) 是否与任一天的夜间时段相交
// 第 k 天的夜间时段为 [k*1440-150, k*1440+390)，即前一天 21:30 至当天 06:30
func overlapsNight(start, end int) bool {
	if end <= start {
		return false
	}
	first := floorDiv(start, model.MinutesPerDay)
	last := floorDiv(end-1, model.MinutesPerDay) + 1
	for k := first; k <= last; k++ {
		lo := k*model.MinutesPerDay - (model.MinutesPerDay - nightStartMinute)
		hi := k*model.MinutesPerDay + nightEndMinute
		if start < hi && end > lo {
			return true
		}
	}
	return false
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// ErrTooManyCombinations 待检查子集或合法组合超过分析上限
var ErrTooManyCombinations = errors.New("班段组合数超过上限")

// Limits 分析规模上限，字段为 0 表示不限制
// 休息矩阵按合法组合数的平方增长
type Limits struct {
	MaxSubsets      int `json:"max_subsets"`
	MaxCombinations int `json:"max_combinations"`
}

// DefaultLimits 默认分析上限
func DefaultLimits() Limits {
	return Limits{MaxSubsets: 1 << 18, MaxCombinations: 1024}
}

// SubsetCount 返回大小 1..maxSize 的子集总数，溢出时返回 math.MaxInt
func SubsetCount(n, maxSize int) int {
	if maxSize <= 0 || maxSize > n {
		maxSize = n
	}
	total, c := 0, 1
	for k := 1; k <= maxSize; k++ {
		if c > math.MaxInt/(n-k+1) {
			return math.MaxInt
		}
		c = c * (n - k + 1) / k
		if total > math.MaxInt-c {
			return math.MaxInt
		}
		total += c
	}
	return total
}

// Enumerate 枚举所有合法单日组合，不限制规模
// maxSize <= 0 表示不限制组合大小；ID 按枚举顺序从 0 开始分配
func Enumerate(segments []model.ShiftSegment, rules Rules, maxSize int) []DayCombination {
	combos, _ := EnumerateLimited(segments, rules, maxSize, Limits{})
	return combos
}

// EnumerateLimited 同 Enumerate，超过 limits 时返回 ErrTooManyCombinations
func EnumerateLimited(segments []model.ShiftSegment, rules Rules, maxSize int, limits Limits) ([]DayCombination, error) {
	sorted := canonical(segments)
	n := len(sorted)
	if n == 0 {
		return []DayCombination{}, nil
	}
	if maxSize <= 0 || maxSize > n {
		maxSize = n
	}
	if limits.MaxSubsets > 0 {
		if count := SubsetCount(n, maxSize); count > limits.MaxSubsets {
			return nil, fmt.Errorf("%w: %d 个班段取至多 %d 个需检查 %d 个子集，上限 %d",
				ErrTooManyCombinations, n, maxSize, count, limits.MaxSubsets)
		}
	}

	combos := make([]DayCombination, 0)
	subset := make([]model.ShiftSegment, 0, maxSize)
	for size := 1; size <= maxSize; size++ {
		idx := make([]int, size)
		for i := range idx {
			idx[i] = i
		}
		for {
			subset = subset[:0]
			for _, i := range idx {
				subset = append(subset, sorted[i])
			}
			combo := layoutSorted(subset)
			if combo.WorkMinutes >= AbsoluteMinWorkMinutes &&
				rules.IsDayValid(combo.WorkMinutes, combo.AmplitudeMinutes, combo.Night) {
				if limits.MaxCombinations > 0 && len(combos) >= limits.MaxCombinations {
					return nil, fmt.Errorf("%w: 合法组合超过 %d 个", ErrTooManyCombinations, limits.MaxCombinations)
				}
				combo.ID = len(combos)
				combos = append(combos, combo)
			}
			if !nextCombination(idx, n) {
				break
			}
		}
	}
	return combos, nil
}

// nextCombination 按字典序推进下标组合，已是最后一个时返回 false
func nextCombination(idx []int, n int) bool {
	k := len(idx)
	i := k - 1
	for i >= 0 && idx[i] == n-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	idx[i]++
	for j := i + 1; j < k; j++ {
		idx[j] = idx[j-1] + 1
	}
	return true
}
