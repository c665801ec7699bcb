package score

import (
	"cmp"
	"slices"
	"time"

	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

// Automation labels.
const (
	AutomationRegularHours = "overly regular posting hours"
	AutomationNone         = "no automation indicators"
)

// Patterns summarizes when and how regularly an account posts.
type Patterns struct {
	WeekdayHistogram     map[string]int `json:"weekday_histogram"`
	HourHistogram        [24]int        `json:"hour_histogram"`
	AverageDaysBetween   float64        `json:"average_days_between"`
	MostFrequentInterval int            `json:"most_frequent_interval"`
	Consistency          float64        `json:"consistency"`
}

// Timeline is the account-age estimate and monthly activity built from post dates.
type Timeline struct {
	Monthly        map[string]int `json:"monthly"`
	AccountAgeDays int            `json:"account_age_days"`
}

// PostingPatterns builds hour and weekday histograms (UTC) and interval statistics.
func PostingPatterns(posts []profile.Post) Patterns {
	p := Patterns{WeekdayHistogram: make(map[string]int)}
	for _, post := range posts {
		ts := post.Timestamp.UTC()
		p.HourHistogram[ts.Hour()]++
		p.WeekdayHistogram[ts.Weekday().String()]++
	}

	iv := Intervals(posts)
	if len(iv) == 0 {
		return p
	}
	p.AverageDaysBetween = mean(iv)
	p.MostFrequentInterval = mode(iv)
	p.Consistency = Consistency(iv)
	return p
}

// Intervals returns the whole-day gaps between consecutive posts, newest first.
func Intervals(posts []profile.Post) []int {
	if len(posts) < 2 {
		return nil
	}
	ts := make([]time.Time, len(posts))
	for i, p := range posts {
		ts[i] = p.Timestamp
	}
	slices.SortFunc(ts, func(a, b time.Time) int { return b.Compare(a) })

	out := make([]int, len(ts)-1)
	for i := range out {
		out[i] = int(ts[i].Sub(ts[i+1]) / (24 * time.Hour))
	}
	return out
}

// Consistency scores how regular the intervals are: 100 - (variance/mean)*10, floored at 0.
// It is 0 with no intervals and a neutral 50 when the mean interval is not positive.
func Consistency(intervals []int) float64 {
	if len(intervals) == 0 {
		return 0
	}
	m := mean(intervals)
	if m <= 0 {
		return 50
	}
	var v float64
	for _, x := range intervals {
		d := float64(x) - m
		v += d * d
	}
	v /= float64(len(intervals))
	return max(0, 100-(v/m)*10)
}

// AutomationIndicators flags posting that happens within three or fewer distinct hours.
// It returns nil when there are no posts to judge.
func AutomationIndicators(posts []profile.Post) []string {
	if len(posts) == 0 {
		return nil
	}
	hours := make(map[int]bool)
	for _, p := range posts {
		hours[p.Timestamp.UTC().Hour()] = true
	}
	if len(hours) <= 3 {
		return []string{AutomationRegularHours}
	}
	return []string{AutomationNone}
}

// BuildTimeline estimates account age from the oldest post and counts posts per month.
func BuildTimeline(posts []profile.Post, now time.Time) Timeline {
	t := Timeline{Monthly: make(map[string]int)}
	if len(posts) == 0 {
		return t
	}
	oldest := posts[0].Timestamp
	for _, p := range posts {
		if p.Timestamp.Before(oldest) {
			oldest = p.Timestamp
		}
		t.Monthly[p.Timestamp.UTC().Format("2006-01")]++
	}
	if age := now.Sub(oldest); age > 0 {
		t.AccountAgeDays = int(age / (24 * time.Hour))
	}
	return t
}

func mean(xs []int) float64 {
	var sum int
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

// mode returns the most frequent value, preferring the smallest on ties.
func mode(xs []int) int {
	counts := make(map[int]int)
	for _, x := range xs {
		counts[x]++
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b int) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return keys[0]
}
