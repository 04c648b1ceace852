// Package bills реализует операции над счетами пользователя: список, создание,
// изменение, удаление, отметку оплаты и сводку. Каждая операция получает владельца
// явно и передает его в каждый запрос к хранилищу.
package bills

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/bill-tracker/backend/internal/models"
	"example.com/bill-tracker/backend/internal/notifications"
	"example.com/bill-tracker/backend/internal/recurrence"
	"example.com/bill-tracker/backend/internal/repository"
)

type Notifier interface {
	Publish(owner string, event notifications.Event)
}

type Recorder interface {
	BillOperation(op string)
	StoreFailure(op string)
	Generated(n int)
}

type Options struct {
	// Location задает часовой пояс календарной даты "сегодня".
	Location *time.Location
	// ExpandOnList включает генерацию повторяющихся счетов при чтении списка.
	ExpandOnList bool
	Notifier     Notifier
	Metrics      Recorder
	Logger       *slog.Logger
	Now          func() time.Time
}

type Service struct {
	repo         repository.BillRepository
	location     *time.Location
	expandOnList bool
	notifier     Notifier
	metrics      Recorder
	logger       *slog.Logger
	now          func() time.Time
}

// NewService создает сервис счетов поверх хранилища.
func NewService(repo repository.BillRepository, opts Options) *Service {
	s := &Service{
		repo:         repo,
		location:     opts.Location,
		expandOnList: opts.ExpandOnList,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type CreateInput struct {
	ID            models.BillID
	Name          string
	Category      models.Category
	Amount        decimal.Decimal
	DueDate       models.Date
	IsPaid        bool
	DatePaid      *models.Date
	Recurring     models.Recurrence
	LastGenerated *models.Date
}

type Summary struct {
	TotalUnpaid  decimal.Decimal
	TotalPaid    decimal.Decimal
	UnpaidCount  int
	PaidCount    int
	OverdueCount int
	ByCategory   map[models.Category]decimal.Decimal
}

// MarshalJSON выводит суммы с двумя знаками после запятой.
func (s Summary) MarshalJSON() ([]byte, error) {
	byCategory := make(map[models.Category]string, len(s.ByCategory))
	for category, amount := range s.ByCategory {
		byCategory[category] = amount.StringFixed(2)
	}

	return json.Marshal(struct {
		TotalUnpaid  string                     `json:"totalUnpaid"`
		TotalPaid    string                     `json:"totalPaid"`
		UnpaidCount  int                        `json:"unpaidCount"`
		PaidCount    int                        `json:"paidCount"`
		OverdueCount int                        `json:"overdueCount"`
		ByCategory   map[models.Category]string `json:"unpaidByCategory"`
	}{
		TotalUnpaid:  s.TotalUnpaid.StringFixed(2),
		TotalPaid:    s.TotalPaid.StringFixed(2),
		UnpaidCount:  s.UnpaidCount,
		PaidCount:    s.PaidCount,
		OverdueCount: s.OverdueCount,
		ByCategory:   byCategory,
	})
}

// Today возвращает текущую календарную дату сервиса.
func (s *Service) Today() models.Date {
	return recurrence.Today(s.now(), s.location)
}

// List возвращает счета владельца, отсортированные по дате оплаты.
// При включенной ленивой генерации сначала добавляет положенные повторы.
func (s *Service) List(ctx context.Context, owner string) ([]models.Bill, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}

	if s.expandOnList {
		if _, err := s.ExpandRecurring(ctx, owner); err != nil {
			return nil, err
		}
	}

	items, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, s.storeError("list", owner, err)
	}

	sortBills(items)
	return items, nil
}

// Get возвращает один счет владельца.
func (s *Service) Get(ctx context.Context, owner string, id models.BillID) (models.Bill, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return models.Bill{}, err
	}
	if id == "" {
		return models.Bill{}, validationError("id is required")
	}

	bill, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Bill{}, ErrNotFound
		}
		return models.Bill{}, s.storeError("get", owner, err)
	}
	return bill, nil
}

// Create сохраняет счет от имени владельца. Идентификатор клиента сохраняется;
// без него назначается текущее время в миллисекундах.
func (s *Service) Create(ctx context.Context, owner string, in CreateInput) (models.Bill, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return models.Bill{}, err
	}

	now := s.now().UTC()
	today := recurrence.Today(now, s.location)

	bill := models.Bill{
		ID:            in.ID,
		OwnerEmail:    owner,
		Name:          strings.TrimSpace(in.Name),
		Category:      in.Category,
		Amount:        in.Amount,
		DueDate:       in.DueDate,
		IsPaid:        in.IsPaid,
		DatePaid:      in.DatePaid,
		Recurring:     in.Recurring,
		LastGenerated: in.LastGenerated,
		CreatedAt:     now,
	}
	if bill.ID == "" {
		bill.ID = models.BillIDFromInt(now.UnixMilli())
	}

	if bill.IsPaid && bill.DatePaid == nil {
		bill.DatePaid = today.Ptr()
	}
	if !bill.IsPaid && bill.DatePaid != nil {
		return models.Bill{}, validationError("datePaid requires isPaid")
	}
	if bill.Recurring.IsRecurring() && bill.LastGenerated == nil {
		bill.LastGenerated = today.Ptr()
	}

	if err := validateBill(bill); err != nil {
		return models.Bill{}, err
	}

	stored, err := s.repo.Create(ctx, bill)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return models.Bill{}, ErrConflict
		case errors.Is(err, repository.ErrInvalid):
			return models.Bill{}, validationError("%v", err)
		}
		return models.Bill{}, s.storeError("create", owner, err)
	}

	s.record("create")
	s.publish(owner, notifications.EventBillCreated, stored)
	return stored, nil
}

// Update применяет частичное изменение и возвращает число найденных счетов.
// Отметка оплаты и дата оплаты меняются парой.
func (s *Service) Update(ctx context.Context, owner string, id models.BillID, patch models.BillPatch) (int64, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return 0, err
	}

	current, err := s.Get(ctx, owner, id)
	if err != nil {
		return 0, err
	}

	patch, err = s.pairPaid(current, patch)
	if err != nil {
		return 0, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	patch = s.activateRecurring(current, patch)

	next := patch.Apply(current)
	if err := validateBill(next); err != nil {
		return 0, err
	}

	updatedAt := s.now().UTC()
	matched, err := s.repo.Update(ctx, owner, id, patch, updatedAt)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return 0, validationError("%v", err)
		}
		return 0, s.storeError("update", owner, err)
	}
	if matched == 0 {
		return 0, ErrNotFound
	}

	next.UpdatedAt = &updatedAt
	s.record("update")
	s.publish(owner, notifications.EventBillUpdated, next)
	return matched, nil
}

// Toggle меняет отметку оплаты. Без явного значения отметка инвертируется.
func (s *Service) Toggle(ctx context.Context, owner string, id models.BillID, isPaid *bool) (models.Bill, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return models.Bill{}, err
	}

	current, err := s.Get(ctx, owner, id)
	if err != nil {
		return models.Bill{}, err
	}

	target := !current.IsPaid
	if isPaid != nil {
		target = *isPaid
	}

	patch := models.BillPatch{IsPaid: &target}
	if target {
		patch.DatePaid = s.Today().Ptr()
	} else {
		patch.ClearDatePaid = true
	}

	updatedAt := s.now().UTC()
	matched, err := s.repo.Update(ctx, owner, id, patch, updatedAt)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return models.Bill{}, validationError("%v", err)
		}
		return models.Bill{}, s.storeError("toggle", owner, err)
	}
	if matched == 0 {
		return models.Bill{}, ErrNotFound
	}

	next := patch.Apply(current)
	next.UpdatedAt = &updatedAt
	s.record("toggle")
	s.publish(owner, notifications.EventBillUpdated, next)
	return next, nil
}

// Delete удаляет счет и возвращает число удаленных записей.
func (s *Service) Delete(ctx context.Context, owner string, id models.BillID) (int64, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return 0, err
	}
	if id == "" {
		return 0, validationError("id is required")
	}

	deleted, err := s.repo.Delete(ctx, owner, id)
	if err != nil {
		return 0, s.storeError("delete", owner, err)
	}
	if deleted == 0 {
		return 0, ErrNotFound
	}

	s.record("delete")
	s.publish(owner, notifications.EventBillDeleted, map[string]models.BillID{"id": id})
	return deleted, nil
}

// Summary считает итоги по счетам владельца.
func (s *Service) Summary(ctx context.Context, owner string) (Summary, error) {
	items, err := s.List(ctx, owner)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(items, s.Today()), nil
}

// Summarize считает итоги по набору счетов на дату today.
func Summarize(items []models.Bill, today models.Date) Summary {
	summary := Summary{
		TotalUnpaid: decimal.Zero,
		TotalPaid:   decimal.Zero,
		ByCategory:  make(map[models.Category]decimal.Decimal),
	}

	for _, bill := range items {
		if bill.IsPaid {
			summary.PaidCount++
			summary.TotalPaid = summary.TotalPaid.Add(bill.Amount)
			continue
		}

		summary.UnpaidCount++
		summary.TotalUnpaid = summary.TotalUnpaid.Add(bill.Amount)
		summary.ByCategory[bill.Category] = summary.ByCategory[bill.Category].Add(bill.Amount)
		if bill.DueDate.Before(today.Time) {
			summary.OverdueCount++
		}
	}

	return summary
}

// TotalUnpaid возвращает сумму неоплаченных счетов.
func TotalUnpaid(items []models.Bill) decimal.Decimal {
	total := decimal.Zero
	for _, bill := range items {
		if !bill.IsPaid {
			total = total.Add(bill.Amount)
		}
	}
	return total
}

func (s *Service) pairPaid(current models.Bill, patch models.BillPatch) (models.BillPatch, error) {
	switch {
	case patch.IsPaid != nil && *patch.IsPaid:
		patch.ClearDatePaid = false
		if patch.DatePaid == nil && (!current.IsPaid || current.DatePaid == nil) {
			patch.DatePaid = s.Today().Ptr()
		}
	case patch.IsPaid != nil:
		if patch.DatePaid != nil {
			return patch, validationError("datePaid requires isPaid")
		}
		patch.ClearDatePaid = true
	default:
		if patch.DatePaid != nil && !current.IsPaid {
			return patch, validationError("datePaid requires isPaid")
		}
		if patch.ClearDatePaid && current.IsPaid {
			return patch, validationError("paid bill requires datePaid")
		}
	}
	return patch, nil
}

// activateRecurring ставит lastGenerated=today счету, который становится
// повторяющимся без отметки генерации, как при создании.
func (s *Service) activateRecurring(current models.Bill, patch models.BillPatch) models.BillPatch {
	next := patch.Apply(current)
	if next.Recurring.IsRecurring() && next.LastGenerated == nil {
		patch.ClearLastGenerated = false
		patch.LastGenerated = s.Today().Ptr()
	}
	return patch
}

func (s *Service) storeError(op, owner string, err error) error {
	if s.metrics != nil {
		s.metrics.StoreFailure(op)
	}
	s.logger.Error("bill store operation failed",
		slog.String("op", op),
		slog.String("owner", owner),
		slog.String("error", err.Error()),
	)
	return &StoreError{Op: op, Err: err}
}

func (s *Service) record(op string) {
	if s.metrics != nil {
		s.metrics.BillOperation(op)
	}
}

func (s *Service) publish(owner, eventType string, data any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(owner, notifications.Event{Type: eventType, Data: data})
}

func normalizeOwner(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", ErrUnauthorized
	}
	return owner, nil
}

func validateBill(bill models.Bill) error {
	if bill.ID == "" {
		return validationError("id is required")
	}
	if bill.Name == "" {
		return validationError("name is required")
	}
	if len(bill.Name) > 200 {
		return validationError("name is too long")
	}
	if !bill.Category.Valid() {
		return validationError("unknown category %q", bill.Category)
	}
	if bill.Amount.IsNegative() {
		return validationError("amount must not be negative")
	}
	if !bill.Amount.Equal(bill.Amount.Round(2)) {
		return validationError("amount must have at most two decimals")
	}
	if bill.DueDate.IsZero() {
		return validationError("dueDate is required")
	}
	if bill.Recurring != models.RecurrenceNone && !bill.Recurring.IsRecurring() {
		return validationError("unknown recurrence %q", bill.Recurring)
	}
	if bill.IsPaid != (bill.DatePaid != nil) {
		return validationError("datePaid must be set exactly when isPaid")
	}
	return nil
}

func sortBills(items []models.Bill) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].DueDate.Equal(items[j].DueDate.Time) {
			return items[i].DueDate.Before(items[j].DueDate.Time)
		}
		return items[i].ID < items[j].ID
	})
}
