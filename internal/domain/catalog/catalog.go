// Package catalog describes the studio's read-only product catalog: sized
// paintings and video courses.
package catalog

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested painting, size or course does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// AllCategories is the pseudo-category that matches every painting.
const AllCategories = "All"

// DefaultRelatedLimit is the number of related paintings shown on a detail page.
const DefaultRelatedLimit = 3

// Size is a purchasable variant of a painting.
type Size struct {
	Name       string          `json:"name"`
	Dimensions string          `json:"dimensions"`
	Price      decimal.Decimal `json:"price"`
	InStock    bool            `json:"inStock"`
}

// Painting is a physical artwork offered in one or more sizes.
type Painting struct {
	ID          int    `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Medium      string `json:"medium"`
	Year        string `json:"year"`
	Sizes       []Size `json:"sizes"`
	Featured    bool   `json:"featured"`
}

// Size returns the size variant with the given name.
func (p *Painting) Size(name string) (Size, error) {
	for _, s := range p.Sizes {
		if s.Name == name {
			return s, nil
		}
	}
	return Size{}, errors.Wrapf(ErrNotFound, "painting %d size %q", p.ID, name)
}

// Difficulty grades a course.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// Lesson is a single video in a course.
type Lesson struct {
	Title    string `json:"title"`
	Duration string `json:"duration"`
}

// Course is a digital product. A course is always sold as exactly one unit.
type Course struct {
	ID            string           `json:"id"`
	Slug          string           `json:"slug"`
	Title         string           `json:"title"`
	Subtitle      string           `json:"subtitle"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Image         string           `json:"image"`
	TotalDuration string           `json:"totalDuration"`
	LessonsCount  int              `json:"lessonsCount"`
	Lessons       []Lesson         `json:"lessons"`
	Features      []string         `json:"features"`
	SampleVideoID string           `json:"sampleVideoId,omitempty"`
	Difficulty    Difficulty       `json:"difficulty"`
	Category      string           `json:"category"`
}

// Provider is the read-only lookup surface consumed by the cart and the
// presentation layer.
type Provider interface {
	PaintingBySlug(slug string) (*Painting, error)
	PaintingByID(id int) (*Painting, error)
	CourseBySlug(slug string) (*Course, error)
	CourseByID(id string) (*Course, error)
	// RelatedPaintings returns up to limit paintings other than id, with
	// paintings of the given category first.
	RelatedPaintings(id int, category string, limit int) []Painting
	Paintings(category string) []Painting
	Courses() []Course
	Categories() []string
}
