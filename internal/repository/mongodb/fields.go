package mongodb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"example.com/bill-tracker/backend/internal/models"
)

// billIDValue хранит числовой идентификатор числом, как его пишет исходное приложение
// (Number(id)), а остальные строкой. Читаются int32, int64, double и string.
type billIDValue models.BillID

func (v billIDValue) MarshalBSONValue() (bsontype.Type, []byte, error) {
	id := models.BillID(v)
	if id.IsNumeric() {
		n, err := strconv.ParseInt(id.String(), 10, 64)
		if err != nil {
			return 0, nil, err
		}
		return bson.MarshalValue(n)
	}
	return bson.MarshalValue(id.String())
}

func (v *billIDValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	var text string
	switch t {
	case bson.TypeString:
		text = raw.StringValue()
	case bson.TypeInt32:
		text = strconv.FormatInt(int64(raw.Int32()), 10)
	case bson.TypeInt64:
		text = strconv.FormatInt(raw.Int64(), 10)
	case bson.TypeDouble:
		text = strconv.FormatFloat(raw.Double(), 'f', -1, 64)
	default:
		return fmt.Errorf("billId: unsupported bson type %s", t)
	}

	id, err := models.ParseBillID(text)
	if err != nil {
		return fmt.Errorf("billId: %w", err)
	}
	*v = billIDValue(id)
	return nil
}

// idFilter сопоставляет числовой идентификатор и с числом, и со строкой.
func idFilter(id models.BillID) any {
	if !id.IsNumeric() {
		return id.String()
	}
	n, err := strconv.ParseInt(id.String(), 10, 64)
	if err != nil {
		return id.String()
	}
	return bson.M{"$in": bson.A{n, id.String()}}
}

// legacyAmount читает поле amount исходного приложения: строку из формы или число.
type legacyAmount struct {
	value decimal.Decimal
}

func (a *legacyAmount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bson.TypeString:
		text := strings.TrimSpace(raw.StringValue())
		if text == "" {
			a.value = decimal.Zero
			return nil
		}
		value, err := decimal.NewFromString(text)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		a.value = value
	case bson.TypeInt32:
		a.value = decimal.NewFromInt32(raw.Int32())
	case bson.TypeInt64:
		a.value = decimal.NewFromInt(raw.Int64())
	case bson.TypeDouble:
		a.value = decimal.NewFromFloat(raw.Double())
	case bson.TypeDecimal128:
		value, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		a.value = value
	case bson.TypeNull, bson.TypeUndefined:
		a.value = decimal.Zero
	default:
		return fmt.Errorf("amount: unsupported bson type %s", t)
	}

	a.value = a.value.Round(2)
	return nil
}

func (a legacyAmount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(a.value.StringFixed(2))
}
