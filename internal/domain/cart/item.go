// Package cart implements the shopping cart: heterogeneous line items
// (sized paintings and single-unit courses), the set of purchased course
// entitlements, pricing, and write-through persistence.
package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shailyverma/art-studio/internal/domain/catalog"
)

// Kind discriminates line item variants. The values double as the "type"
// tag of the persisted form.
type Kind string

const (
	KindPainting Kind = "painting"
	KindCourse   Kind = "course"
)

// Item is a cart line item: either a PhysicalItem or a DigitalItem.
type Item interface {
	Key() Key
	// Units is the quantity the line contributes to the item count.
	Units() int
	item()
}

// PhysicalItem is a painting in a specific size.
type PhysicalItem struct {
	PaintingID int
	Size       string
	Quantity   int
}

func (p PhysicalItem) Key() Key { return PhysicalKey(p.PaintingID, p.Size) }
func (p PhysicalItem) Units() int { return p.Quantity }
func (PhysicalItem) item() {}

// DigitalItem is a course. Its quantity is always one.
type DigitalItem struct {
	CourseID string
}

func (d DigitalItem) Key() Key { return DigitalKey(d.CourseID) }
func (DigitalItem) Units() int { return 1 }
func (DigitalItem) item() {}

// Key identifies a line item: (painting, size) for physical items, course
// id for digital ones. At most one line item exists per Key.
type Key struct {
	Kind       Kind
	PaintingID int
	Size       string
	CourseID   string
}

func PhysicalKey(paintingID int, size string) Key {
	return Key{Kind: KindPainting, PaintingID: paintingID, Size: size}
}

func DigitalKey(courseID string) Key {
	return Key{Kind: KindCourse, CourseID: courseID}
}

func (k Key) String() string {
	if k.Kind == KindCourse {
		return fmt.Sprintf("course:%s", k.CourseID)
	}
	return fmt.Sprintf("painting:%d:%s", k.PaintingID, k.Size)
}

// UnitPrice resolves the price of a single unit of it from the catalog.
func UnitPrice(p catalog.Provider, it Item) (decimal.Decimal, error) {
	switch it := it.(type) {
	case PhysicalItem:
		painting, err := p.PaintingByID(it.PaintingID)
		if err != nil {
			return decimal.Zero, err
		}
		size, err := painting.Size(it.Size)
		if err != nil {
			return decimal.Zero, err
		}
		return size.Price, nil
	case DigitalItem:
		course, err := p.CourseByID(it.CourseID)
		if err != nil {
			return decimal.Zero, err
		}
		return course.Price, nil
	default:
		return decimal.Zero, errors.Errorf("unexpected item %T", it)
	}
}

// LineTotal is unit price times quantity.
func LineTotal(p catalog.Provider, it Item) (decimal.Decimal, error) {
	price, err := UnitPrice(p, it)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(decimal.NewFromInt(int64(it.Units()))), nil
}

// TotalItems sums quantities over items.
func TotalItems(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.Units()
	}
	return total
}

// TotalPrice sums line totals over items. Lines whose product is missing
// from the catalog contribute nothing.
func TotalPrice(p catalog.Provider, items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		line, err := LineTotal(p, it)
		if err != nil {
			continue
		}
		sum = sum.Add(line)
	}
	return sum
}

// Count returns the number of physical and digital line items.
func Count(items []Item) (physical, digital int) {
	for _, it := range items {
		switch it.(type) {
		case PhysicalItem:
			physical++
		case DigitalItem:
			digital++
		}
	}
	return physical, digital
}

func HasPhysicalItems(items []Item) bool {
	physical, _ := Count(items)
	return physical > 0
}

func HasDigitalItems(items []Item) bool {
	_, digital := Count(items)
	return digital > 0
}

func indexOf(items []Item, key Key) int {
	for i, it := range items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}
