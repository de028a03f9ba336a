package service

import (
	"context"
	"fmt"
	"html"
	"slices"
	"strings"
	"time"

	"taskledger/internal/model"
	"taskledger/internal/repository"
)

// SummaryMode selects which tasks a summary lists.
type SummaryMode string

const (
	// SummaryCompleted lists done tasks by completion time.
	SummaryCompleted SummaryMode = "completed"
	// SummaryOpen lists pending tasks by creation time.
	SummaryOpen SummaryMode = "open"
)

// Granularity is the bucket size of a summary.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

const unknownModule = "Unknown module"

// SummaryQuery selects the summary window. Periods counts buckets back from
// the one containing Now, current bucket included.
type SummaryQuery struct {
	Mode        SummaryMode
	Granularity Granularity
	Periods     int
	Now         time.Time
}

// SummaryItem is one task inside a period.
type SummaryItem struct {
	Task        model.Task `json:"task"`
	ModuleName  string     `json:"moduleName"`
	ModuleColor string     `json:"moduleColor"`
	At          time.Time  `json:"at"`
}

// SummaryPeriod is one bucket, newest items first.
type SummaryPeriod struct {
	Key   string        `json:"key"`
	Label string        `json:"label"`
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Items []SummaryItem `json:"items"`
}

// Summary lists periods newest first.
type Summary struct {
	Mode        SummaryMode     `json:"mode"`
	Granularity Granularity     `json:"granularity"`
	Periods     []SummaryPeriod `json:"periods"`
}

// SummaryService builds period reports over completed or open tasks.
type SummaryService struct {
	store *repository.Store
}

func NewSummaryService(store *repository.Store) *SummaryService {
	return &SummaryService{store: store}
}

// ParseSummaryQuery validates raw query values, applying defaults for blanks.
func ParseSummaryQuery(mode, granularity string, periods int, now time.Time) (SummaryQuery, error) {
	q := SummaryQuery{Mode: SummaryMode(mode), Granularity: Granularity(granularity), Periods: periods, Now: now}
	if q.Mode == "" {
		q.Mode = SummaryCompleted
	}
	if q.Granularity == "" {
		q.Granularity = Day
	}
	if q.Periods <= 0 {
		q.Periods = 7
	}
	switch q.Mode {
	case SummaryCompleted, SummaryOpen:
	default:
		return q, invalid("mode", "unknown summary mode %q", mode)
	}
	switch q.Granularity {
	case Day, Week, Month:
	default:
		return q, invalid("granularity", "unknown granularity %q", granularity)
	}
	if q.Periods > 366 {
		return q, invalid("periods", "at most 366 periods")
	}
	return q, nil
}

func (s *SummaryService) Build(ctx context.Context, q SummaryQuery) (Summary, error) {
	mods, err := s.store.Module.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	tasks, err := s.store.Task.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	return BuildSummary(q, mods, tasks), nil
}

// BuildSummary buckets tasks into the periods described by q.
func BuildSummary(q SummaryQuery, mods []model.Module, tasks []model.Task) Summary {
	byID := make(map[string]model.Module, len(mods))
	for _, m := range mods {
		byID[m.ID] = m
	}

	periods := buildPeriods(q)
	for _, t := range tasks {
		at, ok := summaryTime(q.Mode, t)
		if !ok {
			continue
		}
		for i := range periods {
			p := &periods[i]
			if at.Before(p.Start) || !at.Before(p.End) {
				continue
			}
			item := SummaryItem{Task: t, ModuleName: unknownModule, At: at.In(q.Now.Location())}
			if m, ok := byID[t.ModuleID]; ok {
				item.ModuleName = m.Name
				item.ModuleColor = m.Color
			}
			p.Items = append(p.Items, item)
			break
		}
	}

	for i := range periods {
		slices.SortStableFunc(periods[i].Items, func(a, b SummaryItem) int {
			return b.At.Compare(a.At)
		})
	}
	return Summary{Mode: q.Mode, Granularity: q.Granularity, Periods: periods}
}

func summaryTime(mode SummaryMode, t model.Task) (time.Time, bool) {
	if mode == SummaryCompleted {
		if t.CompletedAt == nil {
			return time.Time{}, false
		}
		return *t.CompletedAt, true
	}
	if t.Done() || t.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return t.CreatedAt, true
}

func buildPeriods(q SummaryQuery) []SummaryPeriod {
	loc := q.Now.Location()
	y, m, d := q.Now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	out := make([]SummaryPeriod, 0, q.Periods)
	for i := 0; i < q.Periods; i++ {
		var p SummaryPeriod
		switch q.Granularity {
		case Week:
			offset := (int(today.Weekday()) + 6) % 7 // Monday starts the week
			start := today.AddDate(0, 0, -offset-7*i)
			end := start.AddDate(0, 0, 7)
			isoYear, isoWeek := start.ISOWeek()
			p = SummaryPeriod{
				Key:   fmt.Sprintf("%d-W%02d", isoYear, isoWeek),
				Label: fmt.Sprintf("%s ~ %s", start.Format("2006-01-02"), end.AddDate(0, 0, -1).Format("2006-01-02")),
				Start: start,
				End:   end,
			}
		case Month:
			start := time.Date(y, m-time.Month(i), 1, 0, 0, 0, 0, loc)
			p = SummaryPeriod{Key: start.Format("2006-01"), Label: start.Format("January 2006"), Start: start, End: start.AddDate(0, 1, 0)}
		default:
			start := today.AddDate(0, 0, -i)
			p = SummaryPeriod{Key: start.Format("2006-01-02"), Label: start.Format("Mon 02.01.2006"), Start: start, End: start.AddDate(0, 0, 1)}
		}
		p.Items = []SummaryItem{}
		out = append(out, p)
	}
	return out
}

// FormatSummary renders a summary as Telegram HTML.
func FormatSummary(s Summary) string {
	var builder strings.Builder
	if s.Mode == SummaryOpen {
		builder.WriteString("🔥 <b>Open tasks</b>\n")
	} else {
		builder.WriteString("✅ <b>Completed tasks</b>\n")
	}

	empty := true
	for _, p := range s.Periods {
		if len(p.Items) == 0 {
			continue
		}
		empty = false
		builder.WriteString(fmt.Sprintf("\n🗓 <b>%s</b> · %d\n", html.EscapeString(p.Label), len(p.Items)))
		for _, item := range p.Items {
			builder.WriteString(formatSummaryItem(item))
		}
	}
	if empty {
		builder.WriteString("— nothing in this window\n")
	}
	return strings.TrimSpace(builder.String())
}

func formatSummaryItem(item SummaryItem) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("• %s <i>(%s)</i>", html.EscapeString(strings.TrimSpace(item.Task.Title)), html.EscapeString(item.ModuleName)))
	sb.WriteString(fmt.Sprintf(" %s", item.At.Format("15:04")))
	if detail := strings.TrimSpace(item.Task.Detail); detail != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(detail)))
	}
	sb.WriteByte('\n')
	return sb.String()
}
