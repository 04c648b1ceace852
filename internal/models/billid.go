package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidBillID = errors.New("invalid bill id")

// BillID это логический идентификатор счета, выданный клиентом.
// Значение всегда хранится в канонической форме, см. ParseBillID.
type BillID string

// ParseBillID нормализует идентификатор: числовые представления одного значения
// ("1700000000000", 1.7e12, " 1700000000000 ") сводятся к одной десятичной записи,
// остальные строки сравниваются как есть после обрезки пробелов.
func ParseBillID(raw string) (BillID, error) {
	id := normalizeBillID(raw)
	if id == "" {
		return "", ErrInvalidBillID
	}
	return id, nil
}

// BillIDFromInt создает идентификатор из числа, например из метки времени в миллисекундах.
func BillIDFromInt(value int64) BillID {
	return BillID(strconv.FormatInt(value, 10))
}

func (id BillID) String() string {
	return string(id)
}

// IsNumeric сообщает, что идентификатор является целым числом.
func (id BillID) IsNumeric() bool {
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}

func (id BillID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *BillID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*id = normalizeBillID(raw)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return ErrInvalidBillID
	}

	*id = normalizeBillID(number.String())
	return nil
}

// maxIDExponent ограничивает порядок числовой записи, которую стоит раскрывать.
const maxIDExponent = 64

func normalizeBillID(raw string) BillID {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
		return BillID(strconv.FormatInt(parsed, 10))
	}

	// Точный разбор: разные числа никогда не сводятся к одной записи.
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return BillID(value)
	}
	if exp := parsed.Exponent(); exp > maxIDExponent || exp < -maxIDExponent {
		return BillID(value)
	}

	return BillID(parsed.String())
}
