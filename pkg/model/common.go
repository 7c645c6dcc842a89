// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"
)

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效 '%s': %w", date, err)
	}
	return t, nil
}

// AddDays 日期加减天数，无法解析时返回空串
func AddDays(date string, days int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, days).Format(DateLayout)
}

// DaysBetween 返回 to - from 的天数
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(t.Sub(f).Hours() / 24), nil
}

// DateRange 返回闭区间 [start, end] 内的所有日期
func DateRange(start, end string) ([]string, error) {
	n, err := DaysBetween(start, end)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("结束日期 %s 早于开始日期 %s", end, start)
	}
	dates := make([]string, 0, n+1)
	for i := 0; i <= n; i++ {
		dates = append(dates, AddDays(start, i))
	}
	return dates, nil
}

// ParseClock 解析 HH:MM 为当日分钟数，允许 24:00 之后的时刻（如 30:00 表示次日 06:00）
func ParseClock(clock string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("时间格式无效 '%s': %w", clock, err)
	}
	if h < 0 || m < 0 || m >= 60 {
		return 0, fmt.Errorf("时间超出范围 '%s'", clock)
	}
	return h*60 + m, nil
}

// FormatClock 将分钟数格式化为 HH:MM（跨日时刻按 24 小时制取模）
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
