package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shailyverma/art-studio/internal/domain/catalog"
)

const (
	listPaintingsSQL = `SELECT id, slug, title, category, image, description, details, medium, year, featured
		FROM paintings ORDER BY id`

	listSizesSQL = `SELECT painting_id, name, dimensions, price, in_stock
		FROM painting_sizes ORDER BY painting_id, position`

	listCoursesSQL = `SELECT id, slug, title, subtitle, description, price, original_price, image,
		total_duration, lessons, features, sample_video_id, difficulty, category
		FROM courses ORDER BY position, id`

	upsertPaintingSQL = `INSERT INTO paintings (id, slug, title, category, image, description, details, medium, year, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET slug = EXCLUDED.slug, title = EXCLUDED.title,
			category = EXCLUDED.category, image = EXCLUDED.image, description = EXCLUDED.description,
			details = EXCLUDED.details, medium = EXCLUDED.medium, year = EXCLUDED.year,
			featured = EXCLUDED.featured`

	deleteSizesSQL = `DELETE FROM painting_sizes WHERE painting_id = $1`

	insertSizeSQL = `INSERT INTO painting_sizes (painting_id, position, name, dimensions, price, in_stock)
		VALUES ($1, $2, $3, $4, $5, $6)`

	upsertCourseSQL = `INSERT INTO courses (id, slug, title, subtitle, description, price, original_price, image,
			total_duration, lessons, features, sample_video_id, difficulty, category, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET slug = EXCLUDED.slug, title = EXCLUDED.title,
			subtitle = EXCLUDED.subtitle, description = EXCLUDED.description, price = EXCLUDED.price,
			original_price = EXCLUDED.original_price, image = EXCLUDED.image,
			total_duration = EXCLUDED.total_duration, lessons = EXCLUDED.lessons,
			features = EXCLUDED.features, sample_video_id = EXCLUDED.sample_video_id,
			difficulty = EXCLUDED.difficulty, category = EXCLUDED.category, position = EXCLUDED.position`
)

// LoadCatalog reads the whole catalog in three queries. The result is meant
// to be frozen into a catalog.Static at startup.
func LoadCatalog(ctx context.Context, pool *pgxpool.Pool) (*catalog.Seed, error) {
	rows, err := pool.Query(ctx, listPaintingsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing paintings: %w", err)
	}
	paintings, err := pgx.CollectRows(rows, scanPainting)
	if err != nil {
		return nil, fmt.Errorf("scanning paintings: %w", err)
	}

	byID := make(map[int]int, len(paintings))
	for i, p := range paintings {
		byID[p.ID] = i
	}

	rows, err = pool.Query(ctx, listSizesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing painting sizes: %w", err)
	}
	var (
		paintingID int
		size       catalog.Size
	)
	_, err = pgx.ForEachRow(rows, []any{&paintingID, &size.Name, &size.Dimensions, &size.Price, &size.InStock}, func() error {
		i, ok := byID[paintingID]
		if !ok {
			return fmt.Errorf("size %q references unknown painting %d", size.Name, paintingID)
		}
		paintings[i].Sizes = append(paintings[i].Sizes, size)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning painting sizes: %w", err)
	}

	rows, err = pool.Query(ctx, listCoursesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	courses, err := pgx.CollectRows(rows, scanCourse)
	if err != nil {
		return nil, fmt.Errorf("scanning courses: %w", err)
	}

	return &catalog.Seed{Paintings: paintings, Courses: courses}, nil
}

func scanPainting(row pgx.CollectableRow) (catalog.Painting, error) {
	var p catalog.Painting
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Category, &p.Image,
		&p.Description, &p.Details, &p.Medium, &p.Year, &p.Featured,
	)
	return p, err
}

func scanCourse(row pgx.CollectableRow) (catalog.Course, error) {
	var (
		c        catalog.Course
		original decimal.NullDecimal
		lessons  []byte
	)
	err := row.Scan(
		&c.ID, &c.Slug, &c.Title, &c.Subtitle, &c.Description, &c.Price, &original, &c.Image,
		&c.TotalDuration, &lessons, &c.Features, &c.SampleVideoID, &c.Difficulty, &c.Category,
	)
	if err != nil {
		return c, err
	}
	if original.Valid {
		c.OriginalPrice = &original.Decimal
	}
	if err := json.Unmarshal(lessons, &c.Lessons); err != nil {
		return c, fmt.Errorf("decoding lessons of course %q: %w", c.ID, err)
	}
	c.LessonsCount = len(c.Lessons)
	return c, nil
}

// SeedCatalog upserts every painting (replacing its sizes) and course in a
// single transaction.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool, seed *catalog.Seed) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, p := range seed.Paintings {
			if _, err := tx.Exec(ctx, upsertPaintingSQL,
				p.ID, p.Slug, p.Title, p.Category, p.Image,
				p.Description, p.Details, p.Medium, p.Year, p.Featured,
			); err != nil {
				return fmt.Errorf("upserting painting %d: %w", p.ID, err)
			}
			if _, err := tx.Exec(ctx, deleteSizesSQL, p.ID); err != nil {
				return fmt.Errorf("clearing sizes of painting %d: %w", p.ID, err)
			}
			for pos, s := range p.Sizes {
				if _, err := tx.Exec(ctx, insertSizeSQL, p.ID, pos, s.Name, s.Dimensions, s.Price, s.InStock); err != nil {
					return fmt.Errorf("inserting size %q of painting %d: %w", s.Name, p.ID, err)
				}
			}
		}

		for pos, c := range seed.Courses {
			lessons, err := json.Marshal(c.Lessons)
			if err != nil {
				return fmt.Errorf("marshaling lessons of course %q: %w", c.ID, err)
			}
			var original decimal.NullDecimal
			if c.OriginalPrice != nil {
				original = decimal.NewNullDecimal(*c.OriginalPrice)
			}
			features := c.Features
			if features == nil {
				features = []string{}
			}
			if _, err := tx.Exec(ctx, upsertCourseSQL,
				c.ID, c.Slug, c.Title, c.Subtitle, c.Description, c.Price, original, c.Image,
				c.TotalDuration, lessons, features, c.SampleVideoID, string(c.Difficulty), c.Category, pos,
			); err != nil {
				return fmt.Errorf("upserting course %q: %w", c.ID, err)
			}
		}
		return nil
	})
}
