package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CardMRCC           CardType = "mrcc"
	CardPlatinumTravel CardType = "platinum-travel"
)

const (
	CategoryGroceries     Category = "groceries"
	CategoryDining        Category = "dining"
	CategoryTravel        Category = "travel"
	CategoryShopping      Category = "shopping"
	CategoryFuel          Category = "fuel"
	CategoryUtilities     Category = "utilities"
	CategoryInsurance     Category = "insurance"
	CategoryEMI           Category = "emi"
	CategoryInternational Category = "international"
	CategoryOther         Category = "other"
)

type (
	// CardType identifies one of the fixed card rules.
	CardType string

	// Category is the spend category tag on a transaction.
	Category string

	Date struct {
		time.Time
	}

	// Money is an amount in paise.
	Money struct {
		Cents int64
	}

	// Transaction is a single recorded card spend. Points is a cached value
	// derived from {Card, Amount, Category}; it is recomputed on refresh and
	// never trusted as input.
	Transaction struct {
		ID          string    `json:"id"`
		Card        CardType  `json:"card"`
		Amount      Money     `json:"amount"`
		Category    Category  `json:"category"`
		Date        Date      `json:"date"`
		Description string    `json:"description,omitempty"`
		Points      int64     `json:"points"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnknownCard     = errors.New("unknown card type")
	ErrUnknownCategory = errors.New("unknown category")
)

// Categories lists every valid category tag.
func Categories() []Category {
	return []Category{
		CategoryGroceries, CategoryDining, CategoryTravel, CategoryShopping,
		CategoryFuel, CategoryUtilities, CategoryInsurance, CategoryEMI,
		CategoryInternational, CategoryOther,
	}
}

// IsValid returns true if the category is one of the fixed enumeration.
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// IsValid returns true if a card rule exists for this card type.
func (ct CardType) IsValid() bool {
	_, ok := RuleFor(ct)
	return ok
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Card.IsValid() {
		return ErrUnknownCard
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Category.IsValid() {
		return ErrUnknownCategory
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}
