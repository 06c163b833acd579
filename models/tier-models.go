package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"
)

const (
	TierNameMaxLength = 50
	// MaxSize is the largest thumbnail height a tier may ask for.
	MaxSize = 4000
)

// Sizes is an ordered list of output heights in pixels.
type Sizes []int

type Tier struct {
	gorm.Model
	Name          string `json:"name" gorm:"size:50;uniqueIndex;not null"`
	Sizes         Sizes  `json:"sizes" gorm:"serializer:json;type:text;not null"`
	StoreOriginal bool   `json:"store_original" gorm:"not null;default:false"`
	CanSetExpire  bool   `json:"can_set_expire" gorm:"not null;default:false"`
}

// Variants is the number of thumbnails one upload produces on this tier.
func (t *Tier) Variants() int {
	n := len(t.Sizes)
	if t.StoreOriginal {
		n++
	}
	return n
}

func (t *Tier) Validate() error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return invalid("name", "name is required")
	}
	if len(name) > TierNameMaxLength {
		return invalid("name", "name must be at most %d characters", TierNameMaxLength)
	}
	for i, size := range t.Sizes {
		if size <= 0 || size > MaxSize {
			return invalid(fmt.Sprintf("sizes[%d]", i), "size must be between 1 and %d pixels", MaxSize)
		}
	}
	return nil
}

// BeforeSave keeps invalid tiers out of the database no matter who writes them.
func (t *Tier) BeforeSave(tx *gorm.DB) error {
	if t.Sizes == nil {
		t.Sizes = Sizes{}
	}
	return t.Validate()
}

// ParseSizes validates a JSON literal such as "[200, 400]".
func ParseSizes(raw string) (Sizes, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, invalid("sizes", "sizes is not valid JSON")
	}
	return ValidateSizes(value)
}

// ValidateSizes checks a decoded JSON or YAML value against the sizes schema:
// an array whose items are all numbers. Each number must also be a positive
// whole pixel count.
func ValidateSizes(value interface{}) (Sizes, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, invalid("sizes", "sizes must be an array of numbers")
	}

	sizes := make(Sizes, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("sizes[%d]", i)

		n, ok := toFloat(item)
		if !ok {
			return nil, invalid(field, "%v is not a number", item)
		}
		if n != math.Trunc(n) {
			return nil, invalid(field, "%v is not a whole number of pixels", item)
		}
		if n <= 0 {
			return nil, invalid(field, "%v is not a positive number of pixels", item)
		}
		if n > MaxSize {
			return nil, invalid(field, "%v is larger than %d pixels", item, MaxSize)
		}
		sizes = append(sizes, int(n))
	}
	return sizes, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
