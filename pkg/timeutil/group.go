package timeutil

import "time"

const (
	GroupToday     = "今天"
	GroupYesterday = "昨天"
	GroupThisWeek  = "本周"
	GroupThisMonth = "本月"
	GroupOlder     = "更久"
)

// GroupOrder 文章列表分组的展示顺序
var GroupOrder = []string{GroupToday, GroupYesterday, GroupThisWeek, GroupThisMonth, GroupOlder}

// Group 按时间戳（毫秒）归入文章列表分组，今天与昨天按 now 所在时区的自然日划分
func Group(ms int64, now time.Time) string {
	t := time.UnixMilli(ms)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	diff := now.Sub(t)

	switch {
	case !t.Before(todayStart):
		return GroupToday
	case !t.Before(todayStart.AddDate(0, 0, -1)):
		return GroupYesterday
	case diff < 7*24*time.Hour:
		return GroupThisWeek
	case diff < 30*24*time.Hour:
		return GroupThisMonth
	default:
		return GroupOlder
	}
}
