package catalog

import (
	"github.com/go-faster/errors"
)

var _ Provider = (*Static)(nil)

// Static is an immutable in-memory catalog. It is safe for concurrent use
// since nothing mutates it after construction.
type Static struct {
	paintings  []Painting
	courses    []Course
	categories []string

	paintingByID   map[int]int
	paintingBySlug map[string]int
	courseByID     map[string]int
	courseBySlug   map[string]int
}

// NewStatic validates and indexes the given catalog entries. Order of the
// input slices is preserved for listing.
func NewStatic(paintings []Painting, courses []Course) (*Static, error) {
	s := &Static{
		paintings:      paintings,
		courses:        courses,
		categories:     []string{AllCategories},
		paintingByID:   make(map[int]int, len(paintings)),
		paintingBySlug: make(map[string]int, len(paintings)),
		courseByID:     make(map[string]int, len(courses)),
		courseBySlug:   make(map[string]int, len(courses)),
	}

	seenCategory := make(map[string]bool)
	for i, p := range paintings {
		if err := validatePainting(p); err != nil {
			return nil, err
		}
		if _, dup := s.paintingByID[p.ID]; dup {
			return nil, errors.Errorf("duplicate painting id %d", p.ID)
		}
		if _, dup := s.paintingBySlug[p.Slug]; dup {
			return nil, errors.Errorf("duplicate painting slug %q", p.Slug)
		}
		s.paintingByID[p.ID] = i
		s.paintingBySlug[p.Slug] = i

		if !seenCategory[p.Category] {
			seenCategory[p.Category] = true
			s.categories = append(s.categories, p.Category)
		}
	}

	for i, c := range courses {
		if c.ID == "" || c.Slug == "" {
			return nil, errors.Errorf("course %d: id and slug are required", i)
		}
		if !c.Price.IsPositive() {
			return nil, errors.Errorf("course %s: price must be positive", c.ID)
		}
		if _, dup := s.courseByID[c.ID]; dup {
			return nil, errors.Errorf("duplicate course id %q", c.ID)
		}
		if _, dup := s.courseBySlug[c.Slug]; dup {
			return nil, errors.Errorf("duplicate course slug %q", c.Slug)
		}
		s.courseByID[c.ID] = i
		s.courseBySlug[c.Slug] = i
	}

	return s, nil
}

func validatePainting(p Painting) error {
	if p.Slug == "" {
		return errors.Errorf("painting %d: slug is required", p.ID)
	}
	if len(p.Sizes) == 0 {
		return errors.Errorf("painting %d: at least one size is required", p.ID)
	}
	names := make(map[string]bool, len(p.Sizes))
	for _, size := range p.Sizes {
		if names[size.Name] {
			return errors.Errorf("painting %d: duplicate size %q", p.ID, size.Name)
		}
		names[size.Name] = true
		if !size.Price.IsPositive() {
			return errors.Errorf("painting %d size %q: price must be positive", p.ID, size.Name)
		}
	}
	return nil
}

func (s *Static) PaintingBySlug(slug string) (*Painting, error) {
	i, ok := s.paintingBySlug[slug]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "painting %q", slug)
	}
	p := s.paintings[i]
	return &p, nil
}

func (s *Static) PaintingByID(id int) (*Painting, error) {
	i, ok := s.paintingByID[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "painting %d", id)
	}
	p := s.paintings[i]
	return &p, nil
}

func (s *Static) CourseBySlug(slug string) (*Course, error) {
	i, ok := s.courseBySlug[slug]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "course %q", slug)
	}
	c := s.courses[i]
	return &c, nil
}

func (s *Static) CourseByID(id string) (*Course, error) {
	i, ok := s.courseByID[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "course %q", id)
	}
	c := s.courses[i]
	return &c, nil
}

// RelatedPaintings partitions the catalog (minus the painting itself) into
// same-category and other paintings, keeping catalog order within each group.
// A non-positive limit means DefaultRelatedLimit.
func (s *Static) RelatedPaintings(id int, category string, limit int) []Painting {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	same := make([]Painting, 0, limit)
	var other []Painting
	for _, p := range s.paintings {
		if p.ID == id {
			continue
		}
		if p.Category == category {
			same = append(same, p)
		} else {
			other = append(other, p)
		}
	}

	related := append(same, other...)
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

// Paintings lists paintings of the given category; an empty category or
// AllCategories lists every painting.
func (s *Static) Paintings(category string) []Painting {
	if category == "" || category == AllCategories {
		return append([]Painting(nil), s.paintings...)
	}
	var out []Painting
	for _, p := range s.paintings {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

func (s *Static) Courses() []Course {
	return append([]Course(nil), s.courses...)
}

// Categories returns AllCategories followed by every painting category in
// order of first appearance.
func (s *Static) Categories() []string {
	return append([]string(nil), s.categories...)
}
