// Package memory реализует хранилище в памяти процесса: для локальной разработки и тестов.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/bill-tracker/backend/internal/models"
	"example.com/bill-tracker/backend/internal/repository"
)

var (
	_ repository.BillRepository = (*BillRepository)(nil)
	_ repository.UserRepository = (*UserRepository)(nil)
)

type BillRepository struct {
	mu    sync.RWMutex
	bills map[string]map[models.BillID]models.Bill
	now   func() time.Time
}

// NewBillRepository создает пустое хранилище счетов.
func NewBillRepository() *BillRepository {
	return &BillRepository{
		bills: make(map[string]map[models.BillID]models.Bill),
		now:   time.Now,
	}
}

// ListByOwner возвращает счета владельца.
func (r *BillRepository) ListByOwner(_ context.Context, owner string) ([]models.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := r.bills[owner]
	out := make([]models.Bill, 0, len(owned))
	for _, bill := range owned {
		out = append(out, bill)
	}
	sortByID(out)
	return out, nil
}

// ListRecurring возвращает повторяющиеся счета всех владельцев.
func (r *BillRepository) ListRecurring(_ context.Context) ([]models.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Bill
	for _, owned := range r.bills {
		for _, bill := range owned {
			if bill.Recurring.IsRecurring() {
				out = append(out, bill)
			}
		}
	}
	sortByID(out)
	return out, nil
}

// Get возвращает счет владельца.
func (r *BillRepository) Get(_ context.Context, owner string, id models.BillID) (models.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bill, ok := r.bills[owner][id]
	if !ok {
		return models.Bill{}, repository.ErrNotFound
	}
	return bill, nil
}

// Create сохраняет счет, если пара (владелец, id) свободна.
func (r *BillRepository) Create(_ context.Context, bill models.Bill) (models.Bill, error) {
	if bill.OwnerEmail == "" || bill.ID == "" {
		return models.Bill{}, repository.ErrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owned, ok := r.bills[bill.OwnerEmail]
	if !ok {
		owned = make(map[models.BillID]models.Bill)
		r.bills[bill.OwnerEmail] = owned
	}
	if _, exists := owned[bill.ID]; exists {
		return models.Bill{}, repository.ErrConflict
	}

	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = r.now().UTC()
	}
	owned[bill.ID] = bill
	return bill, nil
}

// Update применяет патч к счету владельца.
func (r *BillRepository) Update(_ context.Context, owner string, id models.BillID, patch models.BillPatch, updatedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bill, ok := r.bills[owner][id]
	if !ok {
		return 0, nil
	}

	bill = patch.Apply(bill)
	stamp := updatedAt.UTC()
	bill.UpdatedAt = &stamp
	r.bills[owner][id] = bill
	return 1, nil
}

// Delete удаляет счет владельца.
func (r *BillRepository) Delete(_ context.Context, owner string, id models.BillID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.bills[owner]
	if _, ok := owned[id]; !ok {
		return 0, nil
	}

	delete(owned, id)
	if len(owned) == 0 {
		delete(r.bills, owner)
	}
	return 1, nil
}

func sortByID(bills []models.Bill) {
	sort.Slice(bills, func(i, j int) bool {
		if bills[i].OwnerEmail != bills[j].OwnerEmail {
			return bills[i].OwnerEmail < bills[j].OwnerEmail
		}
		return bills[i].ID < bills[j].ID
	})
}

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewUserRepository создает пустое хранилище пользователей.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.User)}
}

// Create регистрирует пользователя с уникальным email.
func (r *UserRepository) Create(_ context.Context, email, passwordHash string, name *string) (models.User, error) {
	key := strings.ToLower(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[key]; exists {
		return models.User{}, repository.ErrConflict
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New(),
		Email:        key,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[key] = user
	return user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[strings.ToLower(email)]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

// NewStore собирает хранилище в памяти.
func NewStore() repository.Store {
	return repository.Store{
		Bills: NewBillRepository(),
		Users: NewUserRepository(),
		Ping:  func(context.Context) error { return nil },
		Close: func() {},
	}
}
