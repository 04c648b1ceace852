package bills

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"example.com/bill-tracker/backend/internal/models"
	"example.com/bill-tracker/backend/internal/notifications"
	"example.com/bill-tracker/backend/internal/recurrence"
	"example.com/bill-tracker/backend/internal/repository"
)

// ExpandRecurring добавляет владельцу положенные на сегодня повторы и возвращает их число.
// Повторный вызов в том же периоде ничего не добавляет: идентификатор повтора
// выводится из серии и даты, а дубль отклоняется хранилищем.
func (s *Service) ExpandRecurring(ctx context.Context, owner string) (int, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return 0, err
	}

	items, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return 0, s.storeError("list", owner, err)
	}

	today := s.Today()
	due := recurrence.Expand(items, today)

	created := make([]models.Bill, 0, len(due))
	for _, occurrence := range due {
		bill := occurrence.Bill
		bill.CreatedAt = s.now().UTC()

		stored, err := s.repo.Create(ctx, bill)
		switch {
		case errors.Is(err, repository.ErrConflict):
			// повтор уже создан параллельным проходом
		case err != nil:
			return len(created), s.storeError("generate", owner, err)
		default:
			created = append(created, stored)
		}

		if err := s.supersede(ctx, owner, occurrence.Source, today); err != nil {
			return len(created), err
		}
	}

	if len(created) > 0 {
		if s.metrics != nil {
			s.metrics.Generated(len(created))
		}
		s.logger.Info("recurring bills generated",
			slog.String("owner", owner),
			slog.Int("generated", len(created)),
			slog.Int("checked", len(items)),
		)
		s.publish(owner, notifications.EventBillsGenerated, created)
	}

	return len(created), nil
}

// supersede отмечает голову серии сгенерированной, чтобы удаленный повтор
// не появлялся снова до следующего периода.
func (s *Service) supersede(ctx context.Context, owner string, source models.BillID, today models.Date) error {
	patch := models.BillPatch{LastGenerated: today.Ptr()}
	if _, err := s.repo.Update(ctx, owner, source, patch, s.now().UTC()); err != nil {
		return s.storeError("generate", owner, err)
	}
	return nil
}

// ExpandAll запускает генерацию для каждого владельца с повторяющимися счетами.
func (s *Service) ExpandAll(ctx context.Context) (int, error) {
	recurring, err := s.repo.ListRecurring(ctx)
	if err != nil {
		return 0, s.storeError("list_recurring", "", err)
	}

	owners := make(map[string]struct{})
	for _, bill := range recurring {
		owners[bill.OwnerEmail] = struct{}{}
	}

	ordered := make([]string, 0, len(owners))
	for owner := range owners {
		ordered = append(ordered, owner)
	}
	sort.Strings(ordered)

	total := 0
	var errs []error
	for _, owner := range ordered {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		generated, err := s.ExpandRecurring(ctx, owner)
		total += generated
		if err != nil {
			errs = append(errs, err)
		}
	}

	return total, errors.Join(errs...)
}
