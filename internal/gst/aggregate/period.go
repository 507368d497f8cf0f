package aggregate

import (
	"errors"
	"strings"
	"time"
)

type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

var (
	ErrInvalidQuarter = errors.New("invalid_quarter")
	ErrInvalidYear    = errors.New("invalid_year")
)

// Period is a GST filing period. Dates are UTC midnights; EndDate is the last
// day of the quarter and DueDate the 28th of the following month.
type Period struct {
	Quarter   Quarter   `json:"quarter"`
	Year      int       `json:"year"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	DueDate   time.Time `json:"due_date"`
}

// ParseQuarter accepts "Q1".."Q4" in any case, or a bare 1..4.
func ParseQuarter(value string) (Quarter, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if len(v) == 1 {
		v = "Q" + v
	}
	switch q := Quarter(v); q {
	case Q1, Q2, Q3, Q4:
		return q, nil
	default:
		return "", ErrInvalidQuarter
	}
}

func (q Quarter) index() int {
	switch q {
	case Q1:
		return 1
	case Q2:
		return 2
	case Q3:
		return 3
	case Q4:
		return 4
	default:
		return 0
	}
}

// PeriodFor derives the period dates from quarter and year alone.
func PeriodFor(q Quarter, year int) (Period, error) {
	idx := q.index()
	if idx == 0 {
		return Period{}, ErrInvalidQuarter
	}
	if year < 1 || year > 9999 {
		return Period{}, ErrInvalidYear
	}

	firstMonth := time.Month((idx-1)*3 + 1)
	start := time.Date(year, firstMonth, 1, 0, 0, 0, 0, time.UTC)
	endExclusive := start.AddDate(0, 3, 0)

	return Period{
		Quarter:   q,
		Year:      year,
		StartDate: start,
		EndDate:   endExclusive.AddDate(0, 0, -1),
		DueDate:   time.Date(year, firstMonth+3, 28, 0, 0, 0, 0, time.UTC),
	}, nil
}

// QuarterOf returns the quarter containing t.
func QuarterOf(t time.Time) (Quarter, int) {
	t = t.UTC()
	return Quarter("Q" + string(rune('0'+(int(t.Month())-1)/3+1))), t.Year()
}

// EndExclusive is the midnight after EndDate, for half-open range queries.
func (p Period) EndExclusive() time.Time {
	return p.EndDate.AddDate(0, 0, 1)
}

// Contains reports whether the calendar day of t falls within the period,
// both ends inclusive.
func (p Period) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}
