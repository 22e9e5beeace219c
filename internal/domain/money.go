package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money represents a monetary amount with its currency and the exchange rate
// that was in force when the amount was recorded. The engine never converts
// between currencies; the rate rides along so downstream accounting can.
type Money struct {
	amount       decimal.Decimal
	currency     string
	exchangeRate decimal.Decimal
}

var (
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrNegativeMoney    = errors.New("money amount cannot be negative")
)

// NewMoney creates a Money value with an exchange rate of 1
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	return NewMoneyWithRate(amount, currency, decimal.NewFromInt(1))
}

// NewMoneyWithRate creates a Money value carrying an explicit exchange rate
func NewMoneyWithRate(amount decimal.Decimal, currency string, exchangeRate decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrNegativeMoney
	}

	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}

	return Money{
		amount:       amount,
		currency:     currency,
		exchangeRate: exchangeRate,
	}, nil
}

// ZeroMoney creates a zero money value
func ZeroMoney(currency string) Money {
	return Money{
		amount:       decimal.Zero,
		currency:     currency,
		exchangeRate: decimal.NewFromInt(1),
	}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the ISO 4217 currency code
func (m Money) Currency() string {
	return m.currency
}

// ExchangeRate returns the exchange rate attached to the amount
func (m Money) ExchangeRate() decimal.Decimal {
	return m.exchangeRate
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative returns true if the amount is below zero
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add adds two money values (must have same currency). The receiver's
// exchange rate is kept.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrCurrencyMismatch
	}

	return Money{
		amount:       m.amount.Add(other.amount),
		currency:     m.currency,
		exchangeRate: m.exchangeRate,
	}, nil
}

// Subtract subtracts other from this money (must have same currency). The
// result may be negative; profit figures legitimately are.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrCurrencyMismatch
	}

	return Money{
		amount:       m.amount.Sub(other.amount),
		currency:     m.currency,
		exchangeRate: m.exchangeRate,
	}, nil
}

// MultiplyInt scales the amount by a unit count
func (m Money) MultiplyInt(qty int) Money {
	return Money{
		amount:       m.amount.Mul(decimal.NewFromInt(int64(qty))),
		currency:     m.currency,
		exchangeRate: m.exchangeRate,
	}
}

// Equals checks amount, currency and exchange rate equality
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount) &&
		m.currency == other.currency &&
		m.exchangeRate.Equal(other.exchangeRate)
}

// GreaterThan checks if this money is greater than other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, ErrCurrencyMismatch
	}

	return m.amount.GreaterThan(other.amount), nil
}

// String returns a string representation of the money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

type moneyJSON struct {
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	ExchangeRate float64 `json:"exchangeRate"`
}

// MarshalJSON implements json.Marshaler with the same {amount, currency,
// exchangeRate} shape the store uses.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:       m.amount.InexactFloat64(),
		Currency:     m.currency,
		ExchangeRate: m.exchangeRate.InexactFloat64(),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var decoded moneyJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	m.amount = decimal.NewFromFloat(decoded.Amount)
	m.currency = decoded.Currency
	m.exchangeRate = decimal.NewFromFloat(decoded.ExchangeRate)
	if m.exchangeRate.IsZero() {
		m.exchangeRate = decimal.NewFromInt(1)
	}
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler. The stored shape
// {amount, currency, exchangeRate} is load-bearing: documents written by
// earlier versions of the shop software use exactly these fields.
func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	doc := primitive.D{
		{Key: "amount", Value: m.amount.InexactFloat64()},
		{Key: "currency", Value: m.currency},
		{Key: "exchangeRate", Value: m.exchangeRate.InexactFloat64()},
	}
	return bson.MarshalValue(doc)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var doc primitive.D
	if err := bson.UnmarshalValue(t, data, &doc); err != nil {
		return err
	}

	docMap := doc.Map()
	m.amount = decimalFromBSON(docMap["amount"])
	m.exchangeRate = decimalFromBSON(docMap["exchangeRate"])
	if m.exchangeRate.IsZero() {
		m.exchangeRate = decimal.NewFromInt(1)
	}
	if currency, ok := docMap["currency"].(string); ok {
		m.currency = currency
	}

	return nil
}

// decimalFromBSON tolerates the numeric types the driver may hand back for
// documents written by other clients.
func decimalFromBSON(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	case int32:
		return decimal.NewFromInt(int64(n))
	default:
		return decimal.Zero
	}
}
