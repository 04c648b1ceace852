package recurrence

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/bill-tracker/backend/internal/models"
)

func recurringBill(id models.BillID, recurring models.Recurrence, due, lastGenerated string) models.Bill {
	bill := models.Bill{
		ID:         id,
		OwnerEmail: "a@example.com",
		Name:       "Rent",
		Category:   models.CategoryRentMortgage,
		Amount:     decimal.NewFromInt(1200),
		DueDate:    models.MustParseDate(due),
		Recurring:  recurring,
	}
	if lastGenerated != "" {
		bill.LastGenerated = models.MustParseDate(lastGenerated).Ptr()
	}
	return bill
}

// TestIsDue проверяет границы интервалов для каждого правила.
func TestIsDue(t *testing.T) {
	tests := []struct {
		name      string
		recurring models.Recurrence
		last      string
		today     string
		want      bool
	}{
		{name: "monthly before boundary", recurring: models.RecurrenceMonthly, last: "2024-01-15", today: "2024-02-14", want: false},
		{name: "monthly on boundary", recurring: models.RecurrenceMonthly, last: "2024-01-15", today: "2024-02-15", want: true},
		{name: "monthly end of month clamps", recurring: models.RecurrenceMonthly, last: "2024-01-31", today: "2024-02-29", want: true},
		{name: "quarterly two months", recurring: models.RecurrenceQuarterly, last: "2024-01-10", today: "2024-03-31", want: false},
		{name: "quarterly three months", recurring: models.RecurrenceQuarterly, last: "2024-01-10", today: "2024-04-10", want: true},
		{name: "yearly eleven months", recurring: models.RecurrenceYearly, last: "2023-03-01", today: "2024-02-29", want: false},
		{name: "yearly full year", recurring: models.RecurrenceYearly, last: "2023-03-01", today: "2024-03-01", want: true},
		{name: "one-time never", recurring: models.RecurrenceNone, last: "2000-01-01", today: "2024-03-01", want: false},
		{name: "not activated", recurring: models.RecurrenceMonthly, last: "", today: "2030-01-01", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := recurringBill("1", tt.recurring, "2024-01-31", tt.last)
			assert.Equal(t, tt.want, IsDue(bill, models.MustParseDate(tt.today)))
		})
	}
}

// TestNextLeapYearRollover проверяет перенос 31 января на 29 февраля.
func TestNextLeapYearRollover(t *testing.T) {
	paid := models.MustParseDate("2024-01-01")
	source := recurringBill("1700000000000", models.RecurrenceMonthly, "2024-01-31", "2023-12-01")
	source.IsPaid = true
	source.DatePaid = &paid
	source.CreatedAt = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

	today := models.MustParseDate("2024-01-02")
	next, ok := Next(source, today)
	require.True(t, ok)

	assert.Equal(t, "2024-02-29", next.DueDate.String())
	assert.Equal(t, today, *next.LastGenerated)
	assert.False(t, next.IsPaid)
	assert.Nil(t, next.DatePaid)
	assert.Equal(t, models.BillID("1700000000000-20240229"), next.ID)
	assert.Equal(t, models.BillID("1700000000000"), next.SeriesID)
	assert.True(t, next.CreatedAt.IsZero())
	assert.Equal(t, source.Name, next.Name)
	assert.True(t, source.Amount.Equal(next.Amount))

	assert.True(t, source.IsPaid, "source must stay untouched")
}

// TestNextIsDeterministic проверяет одинаковый результат при повторной проверке.
func TestNextIsDeterministic(t *testing.T) {
	source := recurringBill("7", models.RecurrenceQuarterly, "2024-01-15", "2023-10-15")
	today := models.MustParseDate("2024-01-20")

	first, ok := Next(source, today)
	require.True(t, ok)
	second, ok := Next(source, today)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, "2024-04-15", first.DueDate.String())
}

// TestHeadsPicksLatestOccurrence проверяет выбор одной активной линии на серию.
func TestHeadsPicksLatestOccurrence(t *testing.T) {
	root := recurringBill("1", models.RecurrenceMonthly, "2024-01-31", "2023-12-01")
	child := recurringBill("1-20240229", models.RecurrenceMonthly, "2024-02-29", "2024-01-02")
	child.SeriesID = "1"
	oneTime := recurringBill("2", models.RecurrenceNone, "2024-01-10", "")

	heads := Heads([]models.Bill{root, child, oneTime})
	require.Len(t, heads, 1)
	assert.Equal(t, child.ID, heads[0].ID)
}

// TestHeadsStoppedSeries проверяет, что снятое правило у последнего счета останавливает серию.
func TestHeadsStoppedSeries(t *testing.T) {
	root := recurringBill("1", models.RecurrenceMonthly, "2024-01-31", "2023-12-01")
	child := recurringBill("1-20240229", models.RecurrenceNone, "2024-02-29", "2024-01-02")
	child.SeriesID = "1"

	assert.Empty(t, Heads([]models.Bill{root, child}))
}

// TestExpandIdempotent проверяет, что повторный проход не дублирует счет.
func TestExpandIdempotent(t *testing.T) {
	today := models.MustParseDate("2024-01-02")
	bills := []models.Bill{
		recurringBill("1", models.RecurrenceMonthly, "2024-01-31", "2023-12-01"),
		recurringBill("2", models.RecurrenceNone, "2020-01-01", "2020-01-01"),
	}

	generated := Expand(bills, today)
	require.Len(t, generated, 1)
	assert.Equal(t, models.BillID("1-20240229"), generated[0].Bill.ID)
	assert.Equal(t, models.BillID("1"), generated[0].Source)

	bills = append(bills, generated[0].Bill)
	assert.Empty(t, Expand(bills, today))
	assert.Empty(t, Expand(bills, models.MustParseDate("2024-01-25")))

	next := Expand(bills, models.MustParseDate("2024-02-02"))
	require.Len(t, next, 1)
	assert.Equal(t, "2024-03-29", next[0].Bill.DueDate.String())
	assert.Equal(t, models.BillID("1-20240229"), next[0].Source)
}

// TestExpandSkipsExistingOccurrence проверяет пропуск уже созданного периода.
func TestExpandSkipsExistingOccurrence(t *testing.T) {
	today := models.MustParseDate("2024-01-02")
	root := recurringBill("1", models.RecurrenceMonthly, "2024-01-31", "2023-12-01")
	stopped := recurringBill("1-20240229", models.RecurrenceNone, "2024-01-31", "")

	assert.Empty(t, Expand([]models.Bill{root, stopped}, today))
}

// TestToday проверяет расчет даты в часовом поясе.
func TestToday(t *testing.T) {
	now := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-01", Today(now, nil).String())
	assert.Equal(t, "2024-01-02", Today(now, time.FixedZone("UTC+3", 3*3600)).String())
}
