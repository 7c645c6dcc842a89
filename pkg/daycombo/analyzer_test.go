package daycombo

import (
	"errors"
	"math"
	"testing"

	"github.com/paiban/planning/pkg/model"
)

func seg(id int64, start, end string) model.ShiftSegment {
	s, _ := model.ParseClock(start)
	e, _ := model.ParseClock(end)
	return model.ShiftSegment{ID: id, UnitID: 1, StartMinute: s, EndMinute: e}
}

// 早段、午段各 4 小时，夜段 22:00-06:00
func sampleSegments() []model.ShiftSegment {
	return []model.ShiftSegment{
		seg(3, "22:00", "06:00"),
		seg(1, "08:00", "12:00"),
		seg(2, "13:00", "17:00"),
	}
}

func TestEnumerate_Sample(t *testing.T) {
	combos := Enumerate(sampleSegments(), DefaultRules(), 0)

	if len(combos) != 2 {
		t.Fatalf("期望 2 个合法组合, got %d: %+v", len(combos), combos)
	}

	night := combos[0]
	if night.ID != 0 || night.Key() != "3" {
		t.Errorf("第一个组合应为夜段, got id=%d key=%s", night.ID, night.Key())
	}
	if !night.Night || night.WorkMinutes != 480 || night.Start != 1320 || night.End != 1800 {
		t.Errorf("夜段属性错误: %+v", night)
	}

	day := combos[1]
	if day.ID != 1 || day.Key() != "1,2" {
		t.Errorf("第二个组合应为早+午, got id=%d key=%s", day.ID, day.Key())
	}
	if day.Night || day.WorkMinutes != 480 || day.AmplitudeMinutes != 540 {
		t.Errorf("早+午属性错误: %+v", day)
	}
}

func TestEnumerate_Empty(t *testing.T) {
	combos := Enumerate(nil, DefaultRules(), 0)
	if combos == nil || len(combos) != 0 {
		t.Errorf("空输入应返回空列表, got %v", combos)
	}
}

func TestEnumerate_MaxSize(t *testing.T) {
	combos := Enumerate(sampleSegments(), DefaultRules(), 1)
	if len(combos) != 1 || combos[0].Key() != "3" {
		t.Errorf("上限为 1 时只应保留夜段, got %+v", combos)
	}
}

func TestEnumerate_DuplicateSegments(t *testing.T) {
	segs := append(sampleSegments(), seg(1, "08:00", "12:00"))
	combos := Enumerate(segs, DefaultRules(), 0)
	if len(combos) != 2 {
		t.Errorf("重复班段应去重, got %d", len(combos))
	}
}

func TestEnumerate_Legality(t *testing.T) {
	segs := []model.ShiftSegment{
		seg(1, "05:00", "11:00"),
		seg(2, "07:00", "13:00"),
		seg(3, "12:00", "15:00"),
		seg(4, "15:00", "21:45"),
		seg(5, "16:00", "20:00"),
		seg(6, "22:00", "02:00"),
		seg(7, "09:00", "09:30"),
	}
	rules := DefaultRules()
	combos := Enumerate(segs, rules, 0)
	if len(combos) == 0 {
		t.Fatal("应至少有一个合法组合")
	}

	seen := make(map[string]bool)
	for i, c := range combos {
		if c.ID != i {
			t.Errorf("ID 应按枚举顺序分配: index=%d id=%d", i, c.ID)
		}
		if c.WorkMinutes < AbsoluteMinWorkMinutes {
			t.Errorf("组合 %s 工时 %d 低于下限", c.Key(), c.WorkMinutes)
		}
		if !rules.IsDayValid(c.WorkMinutes, c.AmplitudeMinutes, c.Night) {
			t.Errorf("组合 %s 复核不合法: %+v", c.Key(), c)
		}
		if seen[c.Key()] {
			t.Errorf("组合 %s 重复", c.Key())
		}
		seen[c.Key()] = true
	}
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name      string
		segments  []model.ShiftSegment
		work      int
		amplitude int
		night     bool
	}{
		{
			name:      "清晨段触及夜间",
			segments:  []model.ShiftSegment{seg(1, "05:00", "11:00")},
			work:      360,
			amplitude: 360,
			night:     true,
		},
		{
			name:      "白天段",
			segments:  []model.ShiftSegment{seg(1, "07:00", "13:00")},
			work:      360,
			amplitude: 360,
			night:     false,
		},
		{
			name:      "傍晚段跨入 21:30",
			segments:  []model.ShiftSegment{seg(1, "15:00", "21:45")},
			work:      405,
			amplitude: 405,
			night:     true,
		},
		{
			name:      "重叠段整日后移",
			segments:  []model.ShiftSegment{seg(2, "10:00", "16:00"), seg(1, "08:00", "14:00")},
			work:      720,
			amplitude: 1920,
			night:     false,
		},
		{
			name:      "以 30:00 表示的跨日段",
			segments:  []model.ShiftSegment{seg(1, "22:00", "30:00")},
			work:      480,
			amplitude: 480,
			night:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Layout(tt.segments)
			if c.WorkMinutes != tt.work || c.AmplitudeMinutes != tt.amplitude || c.Night != tt.night {
				t.Errorf("Layout() = work %d amp %d night %v, want %d %d %v",
					c.WorkMinutes, c.AmplitudeMinutes, c.Night, tt.work, tt.amplitude, tt.night)
			}
		})
	}
}

func TestLayout_ShiftedInterval(t *testing.T) {
	c := Layout([]model.ShiftSegment{seg(1, "08:00", "14:00"), seg(2, "10:00", "16:00")})
	if len(c.Intervals) != 2 {
		t.Fatalf("Intervals = %+v", c.Intervals)
	}
	second := c.Intervals[1]
	if second.SegmentID != 2 || second.Start != 600+model.MinutesPerDay || second.End != 960+model.MinutesPerDay {
		t.Errorf("重叠段应后移一天, got %+v", second)
	}
}

func TestDayCombination_Equal(t *testing.T) {
	a := Layout([]model.ShiftSegment{seg(1, "08:00", "12:00"), seg(2, "13:00", "17:00")})
	b := Layout([]model.ShiftSegment{seg(2, "13:00", "17:00"), seg(1, "08:00", "12:00")})
	c := Layout([]model.ShiftSegment{seg(1, "08:00", "12:00")})

	if !a.Equal(b) {
		t.Error("班段集合相同的组合应相等")
	}
	if a.Equal(c) {
		t.Error("班段集合不同的组合不应相等")
	}
}

func TestStandardRules(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		name      string
		work      int
		amplitude int
		night     bool
		want      bool
	}{
		{"正常白班", 480, 540, false, true},
		{"低于绝对下限", 300, 300, false, false},
		{"超过日工时", 620, 620, false, false},
		{"夜班超过 8 小时", 500, 500, true, false},
		{"幅度超限", 480, 800, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.IsDayValid(tt.work, tt.amplitude, tt.night); got != tt.want {
				t.Errorf("IsDayValid() = %v, want %v", got, tt.want)
			}
		})
	}

	if r.MinRestRequired(false) != 660 || r.MinRestRequired(true) != 720 {
		t.Error("最短休息规则错误")
	}
}

// shortSegments 返回 n 个互不重叠的 55 分钟班段，6 个以上才达到最短工时
func shortSegments(n int) []model.ShiftSegment {
	segs := make([]model.ShiftSegment, 0, n)
	for i := 0; i < n; i++ {
		start := 6*60 + i*60
		segs = append(segs, model.ShiftSegment{ID: int64(i + 1), UnitID: 1, StartMinute: start, EndMinute: start + 55})
	}
	return segs
}

func TestSubsetCount(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		maxSize int
		want    int
	}{
		{"空集合", 0, 0, 0},
		{"三个班段不限大小", 3, 0, 7},
		{"三个班段至多两个", 3, 2, 6},
		{"上限大于班段数", 3, 9, 7},
		{"十六取至多六个", 16, 6, 14892},
		{"三十二取至多六个", 32, 6, 1149016},
		{"溢出饱和", 80, 0, math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubsetCount(tt.n, tt.maxSize); got != tt.want {
				t.Errorf("SubsetCount(%d, %d) = %d, want %d", tt.n, tt.maxSize, got, tt.want)
			}
		})
	}
}

func TestEnumerateLimited(t *testing.T) {
	unlimited := StandardRules{}

	tests := []struct {
		name     string
		segments []model.ShiftSegment
		maxSize  int
		limits   Limits
		wantErr  bool
		want     int
	}{
		{"示例班段不限规则时五个组合", sampleSegments(), 0, DefaultLimits(), false, 5},
		{"十二个短班段在上限内", shortSegments(12), 6, DefaultLimits(), false, 924},
		{"合法组合超过上限", shortSegments(16), 6, DefaultLimits(), true, 0},
		{"子集数超过上限", shortSegments(32), 6, DefaultLimits(), true, 0},
		{"不限制时照常枚举", shortSegments(14), 6, Limits{}, false, 3003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combos, err := EnumerateLimited(tt.segments, unlimited, tt.maxSize, tt.limits)
			if tt.wantErr {
				if !errors.Is(err, ErrTooManyCombinations) {
					t.Fatalf("err = %v, want ErrTooManyCombinations", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(combos) != tt.want {
				t.Errorf("组合数 = %d, want %d", len(combos), tt.want)
			}
		})
	}
}
