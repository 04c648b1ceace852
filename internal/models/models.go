package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category string

type Recurrence string

const (
	CategoryUtilities     Category = "Utilities"
	CategoryCreditCard    Category = "Credit Card"
	CategoryRentMortgage  Category = "Rent/Mortgage"
	CategoryInsurance     Category = "Insurance"
	CategoryPhoneInternet Category = "Phone/Internet"
	CategoryOther         Category = "Other"

	RecurrenceNone      Recurrence = ""
	RecurrenceMonthly   Recurrence = "monthly"
	RecurrenceQuarterly Recurrence = "quarterly"
	RecurrenceYearly    Recurrence = "yearly"
)

var categories = []Category{
	CategoryUtilities,
	CategoryCreditCard,
	CategoryRentMortgage,
	CategoryInsurance,
	CategoryPhoneInternet,
	CategoryOther,
}

// Categories возвращает допустимые категории счетов в порядке отображения.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid сообщает, входит ли категория в фиксированный набор.
func (c Category) Valid() bool {
	for _, candidate := range categories {
		if c == candidate {
			return true
		}
	}
	return false
}

// ParseRecurrence приводит значение повторения к каноническому виду.
// Пустая строка и "none" означают разовый счет.
func ParseRecurrence(value string) (Recurrence, bool) {
	switch Recurrence(strings.ToLower(strings.TrimSpace(value))) {
	case RecurrenceNone, "none":
		return RecurrenceNone, true
	case RecurrenceMonthly:
		return RecurrenceMonthly, true
	case RecurrenceQuarterly:
		return RecurrenceQuarterly, true
	case RecurrenceYearly:
		return RecurrenceYearly, true
	default:
		return RecurrenceNone, false
	}
}

// IsRecurring сообщает, порождает ли правило новые счета.
func (r Recurrence) IsRecurring() bool {
	return r == RecurrenceMonthly || r == RecurrenceQuarterly || r == RecurrenceYearly
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Bill struct {
	ID            BillID          `json:"id"`
	SeriesID      BillID          `json:"seriesId,omitempty"`
	OwnerEmail    string          `json:"userEmail"`
	Name          string          `json:"name"`
	Category      Category        `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       Date            `json:"dueDate"`
	IsPaid        bool            `json:"isPaid"`
	DatePaid      *Date           `json:"datePaid"`
	Recurring     Recurrence      `json:"recurring"`
	LastGenerated *Date           `json:"lastGenerated,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}

// MarshalJSON выводит сумму числом с двумя знаками после запятой.
func (b Bill) MarshalJSON() ([]byte, error) {
	type bill Bill
	return json.Marshal(struct {
		bill
		Amount json.Number `json:"amount"`
	}{
		bill:   bill(b),
		Amount: json.Number(b.Amount.StringFixed(2)),
	})
}

// Series возвращает идентификатор серии, к которой относится счет.
// Корень серии использует собственный идентификатор.
func (b Bill) Series() BillID {
	if b.SeriesID != "" {
		return b.SeriesID
	}
	return b.ID
}

// BillPatch описывает частичное изменение счета.
// Nil-поля не меняются; Clear-флаги удаляют необязательные даты.
type BillPatch struct {
	Name               *string
	Category           *Category
	Amount             *decimal.Decimal
	DueDate            *Date
	IsPaid             *bool
	DatePaid           *Date
	ClearDatePaid      bool
	Recurring          *Recurrence
	LastGenerated      *Date
	ClearLastGenerated bool
}

// IsEmpty сообщает, что патч не меняет ни одного поля.
func (p BillPatch) IsEmpty() bool {
	return p.Name == nil &&
		p.Category == nil &&
		p.Amount == nil &&
		p.DueDate == nil &&
		p.IsPaid == nil &&
		p.DatePaid == nil &&
		!p.ClearDatePaid &&
		p.Recurring == nil &&
		p.LastGenerated == nil &&
		!p.ClearLastGenerated
}

// Apply возвращает копию счета с примененным патчем. Идентификатор и владелец не меняются.
func (p BillPatch) Apply(b Bill) Bill {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.DueDate != nil {
		b.DueDate = *p.DueDate
	}
	if p.IsPaid != nil {
		b.IsPaid = *p.IsPaid
	}
	if p.ClearDatePaid {
		b.DatePaid = nil
	} else if p.DatePaid != nil {
		value := *p.DatePaid
		b.DatePaid = &value
	}
	if p.Recurring != nil {
		b.Recurring = *p.Recurring
	}
	if p.ClearLastGenerated {
		b.LastGenerated = nil
	} else if p.LastGenerated != nil {
		value := *p.LastGenerated
		b.LastGenerated = &value
	}
	return b
}
