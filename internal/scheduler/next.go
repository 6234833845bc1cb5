package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jobsuitex/autoapply/pkg/models"
	"github.com/robfig/cron/v3"
)

// NextRun returns the first time after now at which s is due.
//
// Hourly schedules run IntervalHours (default 1) after now. Daily, weekly and
// custom schedules are turned into a standard cron expression and the next
// matching minute strictly after now is returned.
func NextRun(s models.Schedule, now time.Time) (time.Time, error) {
	switch s.Frequency {
	case models.FrequencyHourly:
		hours := s.IntervalHours
		if hours <= 0 {
			hours = 1
		}
		return now.Add(time.Duration(hours) * time.Hour), nil
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyCustom:
		expr, err := CronExpr(s)
		if err != nil {
			return time.Time{}, err
		}
		sched, err := cron.ParseStandard(expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		return sched.Next(now), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidSchedule, s.Frequency)
	}
}

// CronExpr renders a daily, weekly or custom schedule as "MM HH * * DOW".
func CronExpr(s models.Schedule) (string, error) {
	hour, minute, err := parseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return "", err
	}

	dow := "*"
	if s.Frequency == models.FrequencyWeekly || s.Frequency == models.FrequencyCustom {
		if len(s.Days) == 0 {
			return "", fmt.Errorf("%w: %s schedule has no days", ErrInvalidSchedule, s.Frequency)
		}
		days := slices.Clone(s.Days)
		slices.Sort(days)
		days = slices.Compact(days)
		parts := make([]string, 0, len(days))
		for _, d := range days {
			if d < time.Sunday || d > time.Saturday {
				return "", fmt.Errorf("%w: day %d out of range", ErrInvalidSchedule, d)
			}
			parts = append(parts, strconv.Itoa(int(d)))
		}
		dow = strings.Join(parts, ",")
	}

	return fmt.Sprintf("%d %d * * %s", minute, hour, dow), nil
}

func parseTimeOfDay(hhmm string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidSchedule, hhmm)
	}
	hour, herr := strconv.Atoi(h)
	minute, merr := strconv.Atoi(m)
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidSchedule, hhmm)
	}
	return hour, minute, nil
}
