package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/bill-tracker/backend/internal/models"
	"example.com/bill-tracker/backend/internal/repository"
)

func bill(owner string, id models.BillID, recurring models.Recurrence) models.Bill {
	return models.Bill{
		ID:         id,
		OwnerEmail: owner,
		Name:       "Rent",
		Category:   models.CategoryRentMortgage,
		Amount:     decimal.NewFromInt(1200),
		DueDate:    models.MustParseDate("2024-03-01"),
		Recurring:  recurring,
	}
}

// TestBillRepositoryContract проверяет создание, изменение и удаление по владельцу.
func TestBillRepositoryContract(t *testing.T) {
	ctx := context.Background()
	repo := NewBillRepository()

	created, err := repo.Create(ctx, bill("a@example.com", "1", models.RecurrenceNone))
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = repo.Create(ctx, bill("a@example.com", "1", models.RecurrenceNone))
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.Create(ctx, bill("", "2", models.RecurrenceNone))
	assert.ErrorIs(t, err, repository.ErrInvalid)

	_, err = repo.Create(ctx, bill("b@example.com", "1", models.RecurrenceMonthly))
	require.NoError(t, err)

	_, err = repo.Get(ctx, "b@example.com", "2")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	name := "Mortgage"
	matched, err := repo.Update(ctx, "a@example.com", "1", models.BillPatch{Name: &name}, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, matched)

	other, err := repo.Get(ctx, "b@example.com", "1")
	require.NoError(t, err)
	assert.Equal(t, "Rent", other.Name)

	matched, err = repo.Update(ctx, "c@example.com", "1", models.BillPatch{Name: &name}, time.Now())
	require.NoError(t, err)
	assert.Zero(t, matched)

	recurring, err := repo.ListRecurring(ctx)
	require.NoError(t, err)
	require.Len(t, recurring, 1)
	assert.Equal(t, "b@example.com", recurring[0].OwnerEmail)

	deleted, err := repo.Delete(ctx, "a@example.com", "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, err = repo.Delete(ctx, "a@example.com", "1")
	require.NoError(t, err)
	assert.Zero(t, deleted)

	owned, err := repo.ListByOwner(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

// TestUserRepository проверяет уникальность email без учета регистра.
func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	user, err := repo.Create(ctx, "A@Example.com", "hash", nil)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	_, err = repo.Create(ctx, "a@example.com", "hash", nil)
	assert.ErrorIs(t, err, repository.ErrConflict)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
}
