// Package recurrence решает, когда повторяющийся счет порождает следующий,
// и строит этот следующий счет.
//
// Проверка чистая: одинаковые (recurring, dueDate, lastGenerated, today) всегда дают
// одинаковый ответ. Идентификатор нового счета выводится из серии и новой даты оплаты,
// поэтому повторный запуск в том же периоде дает тот же идентификатор, и хранилище
// отклоняет дубль.
package recurrence

import (
	"fmt"
	"sort"
	"time"

	"example.com/bill-tracker/backend/internal/models"
)

const occurrenceDateLayout = "20060102"

// intervals задает шаг серии в календарных месяцах.
var intervals = map[models.Recurrence]int{
	models.RecurrenceMonthly:   1,
	models.RecurrenceQuarterly: 3,
	models.RecurrenceYearly:    12,
}

// IntervalMonths возвращает шаг правила в месяцах. Для разовых счетов ok=false.
func IntervalMonths(r models.Recurrence) (months int, ok bool) {
	months, ok = intervals[r]
	return months, ok
}

// Today возвращает текущую календарную дату в заданном часовом поясе.
func Today(now time.Time, loc *time.Location) models.Date {
	if loc == nil {
		loc = time.UTC
	}
	return models.DateOf(now.In(loc))
}

// IsDue сообщает, прошел ли с lastGenerated полный интервал правила.
// Счет без lastGenerated считается неактивированным и не порождает новых.
func IsDue(bill models.Bill, today models.Date) bool {
	months, ok := IntervalMonths(bill.Recurring)
	if !ok {
		return false
	}

	if bill.LastGenerated == nil || bill.LastGenerated.IsZero() {
		return false
	}

	boundary := bill.LastGenerated.AddMonths(months)
	return !today.Before(boundary.Time)
}

// OccurrenceID выводит идентификатор счета серии по его дате оплаты.
func OccurrenceID(series models.BillID, dueDate models.Date) models.BillID {
	return models.BillID(fmt.Sprintf("%s-%s", series, dueDate.Format(occurrenceDateLayout)))
}

// Next строит следующий счет серии, если он положен на дату today.
// Дата оплаты сдвигается от предыдущей даты оплаты, а не от today.
func Next(bill models.Bill, today models.Date) (models.Bill, bool) {
	if !IsDue(bill, today) {
		return models.Bill{}, false
	}

	months, _ := IntervalMonths(bill.Recurring)
	series := bill.Series()

	next := bill
	next.SeriesID = series
	next.DueDate = bill.DueDate.AddMonths(months)
	next.ID = OccurrenceID(series, next.DueDate)
	next.IsPaid = false
	next.DatePaid = nil
	next.LastGenerated = today.Ptr()
	next.CreatedAt = time.Time{}
	next.UpdatedAt = nil

	return next, true
}

type seriesKey struct {
	owner  string
	series models.BillID
}

type billKey struct {
	owner string
	id    models.BillID
}

// Heads возвращает последний счет каждой серии (по dueDate), если серия все еще
// повторяется. Серия останавливается, когда у последнего счета снято правило.
func Heads(bills []models.Bill) []models.Bill {
	heads := make(map[seriesKey]models.Bill)
	for _, bill := range bills {
		if !bill.Recurring.IsRecurring() && bill.SeriesID == "" {
			continue
		}

		key := seriesKey{owner: bill.OwnerEmail, series: bill.Series()}
		current, ok := heads[key]
		if !ok || laterThan(bill, current) {
			heads[key] = bill
		}
	}

	out := make([]models.Bill, 0, len(heads))
	for _, head := range heads {
		if head.Recurring.IsRecurring() {
			out = append(out, head)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerEmail != out[j].OwnerEmail {
			return out[i].OwnerEmail < out[j].OwnerEmail
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Occurrence это новый счет серии вместе с головой, от которой он построен.
type Occurrence struct {
	Bill   models.Bill
	Source models.BillID
}

// Expand возвращает новые счета, положенные на дату today, без уже существующих.
// Вместе с созданием повтора у головы Source нужно выставить lastGenerated=today.
func Expand(bills []models.Bill, today models.Date) []Occurrence {
	existing := make(map[billKey]struct{}, len(bills))
	for _, bill := range bills {
		existing[billKey{owner: bill.OwnerEmail, id: bill.ID}] = struct{}{}
	}

	var generated []Occurrence
	for _, head := range Heads(bills) {
		next, ok := Next(head, today)
		if !ok {
			continue
		}
		if _, dup := existing[billKey{owner: next.OwnerEmail, id: next.ID}]; dup {
			continue
		}
		generated = append(generated, Occurrence{Bill: next, Source: head.ID})
	}
	return generated
}

func laterThan(a, b models.Bill) bool {
	if !a.DueDate.Equal(b.DueDate.Time) {
		return a.DueDate.After(b.DueDate.Time)
	}
	return generatedAt(a).After(generatedAt(b))
}

func generatedAt(b models.Bill) time.Time {
	if b.LastGenerated == nil {
		return time.Time{}
	}
	return b.LastGenerated.Time
}
