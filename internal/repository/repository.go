// Package repository описывает контракты хранилищ счетов и пользователей.
// Реализации: postgres, mongodb и memory.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"example.com/bill-tracker/backend/internal/models"
)

// BillRepository хранит счета. Каждый метод, кроме ListRecurring, фильтрует по владельцу.
type BillRepository interface {
	// ListByOwner возвращает все счета владельца без гарантии порядка.
	ListByOwner(ctx context.Context, owner string) ([]models.Bill, error)
	// ListRecurring возвращает повторяющиеся счета всех владельцев.
	ListRecurring(ctx context.Context) ([]models.Bill, error)
	// Get возвращает счет владельца или ErrNotFound.
	Get(ctx context.Context, owner string, id models.BillID) (models.Bill, error)
	// Create сохраняет счет. Повтор пары (владелец, id) дает ErrConflict.
	Create(ctx context.Context, bill models.Bill) (models.Bill, error)
	// Update применяет патч одной записью и возвращает число найденных счетов.
	Update(ctx context.Context, owner string, id models.BillID, patch models.BillPatch, updatedAt time.Time) (int64, error)
	// Delete удаляет счет и возвращает число удаленных записей.
	Delete(ctx context.Context, owner string, id models.BillID) (int64, error)
}

// UserRepository хранит учетные записи.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string, name *string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Store объединяет репозитории одного бэкенда.
type Store struct {
	Bills BillRepository
	Users UserRepository
	Ping  func(ctx context.Context) error
	Close func()
}
