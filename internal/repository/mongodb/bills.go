// Package mongodb хранит счета в коллекции MongoDB в формате исходного приложения:
// документ на счет с полями billId и userEmail. Документы, записанные исходным
// приложением (числовой billId, сумма в поле amount), читаются без миграции.
package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"example.com/bill-tracker/backend/internal/models"
	"example.com/bill-tracker/backend/internal/repository"
)

var _ repository.BillRepository = (*BillRepository)(nil)

type billDocument struct {
	ObjectID      primitive.ObjectID `bson:"_id,omitempty"`
	BillID        billIDValue        `bson:"billId"`
	SeriesID      string             `bson:"seriesId,omitempty"`
	UserEmail     string             `bson:"userEmail"`
	Name          string             `bson:"name"`
	Category      string             `bson:"category"`
	AmountCents   *int64             `bson:"amountCents,omitempty"`
	Amount        *legacyAmount      `bson:"amount,omitempty"`
	DueDate       string             `bson:"dueDate"`
	IsPaid        bool               `bson:"isPaid"`
	DatePaid      string             `bson:"datePaid,omitempty"`
	Recurring     string             `bson:"recurring,omitempty"`
	LastGenerated string             `bson:"lastGenerated,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     *time.Time         `bson:"updatedAt,omitempty"`
}

type BillRepository struct {
	coll *mongo.Collection
}

// NewBillRepository создает репозиторий поверх коллекции счетов.
func NewBillRepository(coll *mongo.Collection) *BillRepository {
	return &BillRepository{coll: coll}
}

// EnsureIndexes создает уникальный индекс (userEmail, billId).
func (r *BillRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userEmail", Value: 1}, {Key: "billId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("owner_bill_unique"),
		},
		{
			Keys:    bson.D{{Key: "recurring", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("recurring"),
		},
	})
	return err
}

// ListByOwner возвращает счета владельца.
func (r *BillRepository) ListByOwner(ctx context.Context, owner string) ([]models.Bill, error) {
	return r.find(ctx, bson.M{"userEmail": owner})
}

// ListRecurring возвращает повторяющиеся счета всех владельцев.
func (r *BillRepository) ListRecurring(ctx context.Context) ([]models.Bill, error) {
	return r.find(ctx, bson.M{"recurring": bson.M{"$in": bson.A{
		string(models.RecurrenceMonthly),
		string(models.RecurrenceQuarterly),
		string(models.RecurrenceYearly),
	}}})
}

// Get возвращает счет владельца.
func (r *BillRepository) Get(ctx context.Context, owner string, id models.BillID) (models.Bill, error) {
	var doc billDocument
	err := r.coll.FindOne(ctx, ownerFilter(owner, id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Bill{}, repository.ErrNotFound
		}
		return models.Bill{}, err
	}
	return fromDocument(doc)
}

// Create вставляет документ счета.
func (r *BillRepository) Create(ctx context.Context, bill models.Bill) (models.Bill, error) {
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, toDocument(bill)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bill, repository.ErrConflict
		}
		return bill, err
	}

	return bill, nil
}

// Update применяет патч одной операцией updateOne.
func (r *BillRepository) Update(ctx context.Context, owner string, id models.BillID, patch models.BillPatch, updatedAt time.Time) (int64, error) {
	result, err := r.coll.UpdateOne(ctx, ownerFilter(owner, id), updateDocument(patch, updatedAt))
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

// Delete удаляет документ счета.
func (r *BillRepository) Delete(ctx context.Context, owner string, id models.BillID) (int64, error) {
	result, err := r.coll.DeleteOne(ctx, ownerFilter(owner, id))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *BillRepository) find(ctx context.Context, filter bson.M) ([]models.Bill, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	var docs []billDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	bills := make([]models.Bill, 0, len(docs))
	for _, doc := range docs {
		bill, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

func ownerFilter(owner string, id models.BillID) bson.M {
	return bson.M{"userEmail": owner, "billId": idFilter(id)}
}

func updateDocument(patch models.BillPatch, updatedAt time.Time) bson.D {
	set := bson.D{}
	unset := bson.D{}

	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.Category != nil {
		set = append(set, bson.E{Key: "category", Value: string(*patch.Category)})
	}
	if patch.Amount != nil {
		set = append(set,
			bson.E{Key: "amountCents", Value: models.AmountToCents(*patch.Amount)},
			bson.E{Key: "amount", Value: legacyAmount{value: *patch.Amount}},
		)
	}
	if patch.DueDate != nil {
		set = append(set, bson.E{Key: "dueDate", Value: patch.DueDate.String()})
	}
	if patch.IsPaid != nil {
		set = append(set, bson.E{Key: "isPaid", Value: *patch.IsPaid})
	}
	if patch.ClearDatePaid {
		unset = append(unset, bson.E{Key: "datePaid", Value: ""})
	} else if patch.DatePaid != nil {
		set = append(set, bson.E{Key: "datePaid", Value: patch.DatePaid.String()})
	}
	if patch.Recurring != nil {
		set = append(set, bson.E{Key: "recurring", Value: string(*patch.Recurring)})
	}
	if patch.ClearLastGenerated {
		unset = append(unset, bson.E{Key: "lastGenerated", Value: ""})
	} else if patch.LastGenerated != nil {
		set = append(set, bson.E{Key: "lastGenerated", Value: patch.LastGenerated.String()})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: updatedAt.UTC()})

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}

func toDocument(bill models.Bill) billDocument {
	cents := models.AmountToCents(bill.Amount)
	doc := billDocument{
		BillID:      billIDValue(bill.ID),
		SeriesID:    bill.SeriesID.String(),
		UserEmail:   bill.OwnerEmail,
		Name:        bill.Name,
		Category:    string(bill.Category),
		AmountCents: &cents,
		Amount:      &legacyAmount{value: bill.Amount},
		DueDate:     bill.DueDate.String(),
		IsPaid:      bill.IsPaid,
		Recurring:   string(bill.Recurring),
		CreatedAt:   bill.CreatedAt.UTC(),
		UpdatedAt:   bill.UpdatedAt,
	}
	if bill.DatePaid != nil {
		doc.DatePaid = bill.DatePaid.String()
	}
	if bill.LastGenerated != nil {
		doc.LastGenerated = bill.LastGenerated.String()
	}
	return doc
}

func fromDocument(doc billDocument) (models.Bill, error) {
	bill := models.Bill{
		ID:         models.BillID(doc.BillID),
		SeriesID:   models.BillID(doc.SeriesID),
		OwnerEmail: doc.UserEmail,
		Name:       doc.Name,
		Category:   models.Category(doc.Category),
		Amount:     decimal.Zero,
		IsPaid:     doc.IsPaid,
		Recurring:  models.Recurrence(doc.Recurring),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}

	switch {
	case doc.AmountCents != nil:
		bill.Amount = models.AmountFromCents(*doc.AmountCents)
	case doc.Amount != nil:
		bill.Amount = doc.Amount.value
	}

	dueDate, err := models.ParseDate(doc.DueDate)
	if err != nil {
		return bill, err
	}
	bill.DueDate = dueDate

	if doc.DatePaid != "" {
		datePaid, err := models.ParseDate(doc.DatePaid)
		if err != nil {
			return bill, err
		}
		bill.DatePaid = &datePaid
	}

	if doc.LastGenerated != "" {
		lastGenerated, err := models.ParseDate(doc.LastGenerated)
		if err != nil {
			return bill, err
		}
		bill.LastGenerated = &lastGenerated
	}

	return bill, nil
}
