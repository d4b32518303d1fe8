package timeutil

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// JustNow 一分钟内的展示文案
const JustNow = "刚刚"

var magnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: JustNow, DivBy: time.Second},
	{D: time.Hour, Format: "%d分钟%s", DivBy: time.Minute},
	{D: humanize.Day, Format: "%d小时%s", DivBy: time.Hour},
	{D: humanize.Week, Format: "%d天%s", DivBy: humanize.Day},
	{D: humanize.Month, Format: "%d周%s", DivBy: humanize.Week},
	{D: humanize.Year, Format: "%d个月%s", DivBy: humanize.Month},
	{D: math.MaxInt64, Format: "%d年%s", DivBy: humanize.Year},
}

// RelativeLabel 生成相对时间文案，如 "刚刚"、"3小时前"
func RelativeLabel(t, now time.Time) string {
	return humanize.CustomRelTime(t, now, "前", "后", magnitudes)
}

// LabelMillis 按毫秒时间戳生成相对时间文案
func LabelMillis(ms int64, now time.Time) string {
	return RelativeLabel(time.UnixMilli(ms), now)
}

var labelPattern = regexp.MustCompile(`^\s*([\d.]+)\s*(秒|分钟|小时|天|周|个月|年)前\s*$`)

var units = map[string]time.Duration{
	"秒":  time.Second,
	"分钟": time.Minute,
	"小时": time.Hour,
	"天":  humanize.Day,
	"周":  humanize.Week,
	"个月": humanize.Month,
	"年":  humanize.Year,
}

// ParseLabel 把旧数据中的相对时间文案还原为近似时间点，
// 支持小数（如 "3.5小时前"），无法识别时返回 false
func ParseLabel(label string, now time.Time) (time.Time, bool) {
	switch label {
	case JustNow, "just now":
		return now, true
	}
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(n * float64(units[m[2]]))), true
}
