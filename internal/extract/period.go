package extract

import (
	"fmt"
	"macroscrape/internal/record"
	"strconv"
	"time"
)

type PeriodKind int

const (
	Annual PeriodKind = iota
	Quarterly
	Monthly
)

// Period is a reporting period as dashboards display it, N is the quarter or
// month and unused for annual figures.
type Period struct {
	Kind PeriodKind
	Year int
	N    int
}

// Date is the last day of a quarter or year, and the first day of a month.
func (p Period) Date() string {
	switch p.Kind {
	case Quarterly:
		return time.Date(p.Year, time.Month(3*p.N+1), 0, 0, 0, 0, 0, time.UTC).Format(record.DateLayout)
	case Monthly:
		return record.MonthlyDate(p.Year, time.Month(p.N), record.DayFirst)
	}
	return record.AnnualDate(p.Year)
}

// Previous is the period right before p, of the same kind.
func (p Period) Previous() Period {
	switch p.Kind {
	case Quarterly:
		if p.N == 1 {
			return Period{Kind: Quarterly, Year: p.Year - 1, N: 4}
		}
		return Period{Kind: Quarterly, Year: p.Year, N: p.N - 1}
	case Monthly:
		if p.N == 1 {
			return Period{Kind: Monthly, Year: p.Year - 1, N: 12}
		}
		return Period{Kind: Monthly, Year: p.Year, N: p.N - 1}
	}
	return Period{Kind: Annual, Year: p.Year - 1}
}

func (p Period) String() string {
	switch p.Kind {
	case Quarterly:
		return fmt.Sprintf("Q%d/%d", p.N, p.Year)
	case Monthly:
		return fmt.Sprintf("%02d/%d", p.N, p.Year)
	}
	return strconv.Itoa(p.Year)
}
