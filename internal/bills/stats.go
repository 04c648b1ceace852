package bills

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"example.com/bill-tracker/backend/internal/models"
)

const monthLayout = "2006-01"

// MonthlyTotal суммирует счета одного месяца по дате оплаты.
type MonthlyTotal struct {
	Month  string
	Total  decimal.Decimal
	Paid   decimal.Decimal
	Unpaid decimal.Decimal
	Count  int
}

func (m MonthlyTotal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Month  string `json:"month"`
		Total  string `json:"total"`
		Paid   string `json:"paid"`
		Unpaid string `json:"unpaid"`
		Count  int    `json:"count"`
	}{
		Month:  m.Month,
		Total:  m.Total.StringFixed(2),
		Paid:   m.Paid.StringFixed(2),
		Unpaid: m.Unpaid.StringFixed(2),
		Count:  m.Count,
	})
}

// Monthly возвращает итоги по последним months месяцам, в которых есть счета.
func (s *Service) Monthly(ctx context.Context, owner string, months int) ([]MonthlyTotal, error) {
	if months <= 0 {
		return nil, validationError("months must be positive")
	}

	items, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	return GroupByMonth(items, months), nil
}

// GroupByMonth группирует счета по месяцу даты оплаты, от новых к старым.
func GroupByMonth(items []models.Bill, limit int) []MonthlyTotal {
	byMonth := make(map[string]*MonthlyTotal)
	for _, bill := range items {
		key := bill.DueDate.Format(monthLayout)
		total, ok := byMonth[key]
		if !ok {
			total = &MonthlyTotal{Month: key}
			byMonth[key] = total
		}

		total.Count++
		total.Total = total.Total.Add(bill.Amount)
		if bill.IsPaid {
			total.Paid = total.Paid.Add(bill.Amount)
		} else {
			total.Unpaid = total.Unpaid.Add(bill.Amount)
		}
	}

	out := make([]MonthlyTotal, 0, len(byMonth))
	for _, total := range byMonth {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month > out[j].Month
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
