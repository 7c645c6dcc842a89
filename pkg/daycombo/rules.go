// Package daycombo 枚举岗位班段的合法单日组合，并预计算组合间的休息兼容关系
package daycombo

// AbsoluteMinWorkMinutes 单日最少工作分钟数（5小时30分），低于此值的组合一律丢弃
const AbsoluteMinWorkMinutes = 330

// 夜间时段：21:30-24:00 与 00:00-06:30
const (
	nightStartMinute = 21*60 + 30
	nightEndMinute   = 6*60 + 30
)

// Rules 单日合法性与休息规则
type Rules interface {
	// IsDayValid 检查单日工作时长、幅度与夜班标记是否合法
	IsDayValid(workMinutes, amplitudeMinutes int, night bool) bool
	// MinRestRequired 返回两日之间的最短休息分钟数
	MinRestRequired(night bool) int
}

// StandardRules 标准劳动规则，字段为 0 表示不限制
type StandardRules struct {
	MaxWorkMinutes      int `json:"max_work_minutes"`
	MaxNightWorkMinutes int `json:"max_night_work_minutes"`
	MaxAmplitudeMinutes int `json:"max_amplitude_minutes"`
	MinRestMinutes      int `json:"min_rest_minutes"`
	MinRestNightMinutes int `json:"min_rest_night_minutes"`
}

// DefaultRules 默认规则：日工作 10h、夜班 8h、幅度 13h、休息 11h、夜班后休息 12h
func DefaultRules() StandardRules {
	return StandardRules{
		MaxWorkMinutes:      600,
		MaxNightWorkMinutes: 480,
		MaxAmplitudeMinutes: 780,
		MinRestMinutes:      660,
		MinRestNightMinutes: 720,
	}
}

// IsDayValid 实现 Rules
func (r StandardRules) IsDayValid(workMinutes, amplitudeMinutes int, night bool) bool {
	if workMinutes < AbsoluteMinWorkMinutes {
		return false
	}
	maxWork := r.MaxWorkMinutes
	if night && r.MaxNightWorkMinutes > 0 {
		maxWork = r.MaxNightWorkMinutes
	}
	if maxWork > 0 && workMinutes > maxWork {
		return false
	}
	if r.MaxAmplitudeMinutes > 0 && amplitudeMinutes > r.MaxAmplitudeMinutes {
		return false
	}
	return true
}

// MinRestRequired 实现 Rules
func (r StandardRules) MinRestRequired(night bool) int {
	if night && r.MinRestNightMinutes > 0 {
		return r.MinRestNightMinutes
	}
	return r.MinRestMinutes
}
