package handler

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/shailyverma/art-studio/internal/domain/cart"
	"github.com/shailyverma/art-studio/internal/domain/catalog"
	"github.com/shailyverma/art-studio/internal/domain/checkout"
)

func encodeStrings(e *jx.Encoder, values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}

func encodeSize(e *jx.Encoder, s catalog.Size) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("dimensions")
	e.Str(s.Dimensions)
	e.FieldStart("price")
	encodeMoney(e, s.Price)
	e.FieldStart("inStock")
	e.Bool(s.InStock)
	e.ObjEnd()
}

func encodePainting(e *jx.Encoder, p catalog.Painting) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(p.ID)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("details")
	e.Str(p.Details)
	e.FieldStart("medium")
	e.Str(p.Medium)
	e.FieldStart("year")
	e.Str(p.Year)
	e.FieldStart("featured")
	e.Bool(p.Featured)
	e.FieldStart("sizes")
	e.ArrStart()
	for _, s := range p.Sizes {
		encodeSize(e, s)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodePaintings(e *jx.Encoder, paintings []catalog.Painting) {
	e.ArrStart()
	for _, p := range paintings {
		encodePainting(e, p)
	}
	e.ArrEnd()
}

func encodeCourse(e *jx.Encoder, c catalog.Course) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("slug")
	e.Str(c.Slug)
	e.FieldStart("title")
	e.Str(c.Title)
	e.FieldStart("subtitle")
	e.Str(c.Subtitle)
	e.FieldStart("description")
	e.Str(c.Description)
	e.FieldStart("price")
	encodeMoney(e, c.Price)
	if c.OriginalPrice != nil {
		e.FieldStart("originalPrice")
		encodeMoney(e, *c.OriginalPrice)
	}
	e.FieldStart("image")
	e.Str(c.Image)
	e.FieldStart("totalDuration")
	e.Str(c.TotalDuration)
	e.FieldStart("lessonsCount")
	e.Int(c.LessonsCount)
	e.FieldStart("lessons")
	e.ArrStart()
	for _, l := range c.Lessons {
		e.ObjStart()
		e.FieldStart("title")
		e.Str(l.Title)
		e.FieldStart("duration")
		e.Str(l.Duration)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("features")
	encodeStrings(e, c.Features)
	if c.SampleVideoID != "" {
		e.FieldStart("sampleVideoId")
		e.Str(c.SampleVideoID)
	}
	e.FieldStart("difficulty")
	e.Str(string(c.Difficulty))
	e.FieldStart("category")
	e.Str(c.Category)
	e.ObjEnd()
}

// encodeCart writes the snapshot with every line resolved against the
// catalog. Lines the catalog no longer knows are left out.
func encodeCart(e *jx.Encoder, p catalog.Provider, snap cart.Snapshot) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range snap.Items {
		encodeLine(e, p, it)
	}
	e.ArrEnd()
	e.FieldStart("totalItems")
	e.Int(snap.TotalItems)
	e.FieldStart("totalPrice")
	encodeMoney(e, snap.TotalPrice)
	e.FieldStart("hasPhysicalItems")
	e.Bool(snap.HasPhysicalItems)
	e.FieldStart("hasDigitalItems")
	e.Bool(snap.HasDigitalItems)
	e.FieldStart("open")
	e.Bool(snap.Open)
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, p catalog.Provider, it cart.Item) {
	unit, err := cart.UnitPrice(p, it)
	if err != nil {
		return
	}
	total, err := cart.LineTotal(p, it)
	if err != nil {
		return
	}

	e.ObjStart()
	e.FieldStart("key")
	e.Str(it.Key().String())
	switch it := it.(type) {
	case cart.PhysicalItem:
		painting, _ := p.PaintingByID(it.PaintingID)
		size, _ := painting.Size(it.Size)
		e.FieldStart("type")
		e.Str(string(cart.KindPainting))
		e.FieldStart("paintingId")
		e.Int(it.PaintingID)
		e.FieldStart("slug")
		e.Str(painting.Slug)
		e.FieldStart("title")
		e.Str(painting.Title)
		e.FieldStart("image")
		e.Str(painting.Image)
		e.FieldStart("size")
		e.Str(size.Name)
		e.FieldStart("dimensions")
		e.Str(size.Dimensions)
		e.FieldStart("inStock")
		e.Bool(size.InStock)
	case cart.DigitalItem:
		course, _ := p.CourseByID(it.CourseID)
		e.FieldStart("type")
		e.Str(string(cart.KindCourse))
		e.FieldStart("courseId")
		e.Str(it.CourseID)
		e.FieldStart("slug")
		e.Str(course.Slug)
		e.FieldStart("title")
		e.Str(course.Title)
		e.FieldStart("image")
		e.Str(course.Image)
	}
	e.FieldStart("quantity")
	e.Int(it.Units())
	e.FieldStart("unitPrice")
	encodeMoney(e, unit)
	e.FieldStart("lineTotal")
	encodeMoney(e, total)
	e.ObjEnd()
}

func encodeAttempt(e *jx.Encoder, a checkout.Attempt) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(a.ID)
	e.FieldStart("status")
	e.Str(string(a.Status))
	e.FieldStart("orderType")
	e.Str(string(a.OrderType))
	e.FieldStart("amount")
	encodeMoney(e, a.Amount)
	e.FieldStart("currency")
	e.Str(a.Currency)
	e.FieldStart("description")
	e.Str(a.Description)
	e.FieldStart("paymentId")
	e.Str(a.PaymentID)
	e.FieldStart("checkoutUrl")
	e.Str(a.CheckoutURL)
	if a.Reference != "" {
		e.FieldStart("reference")
		e.Str(a.Reference)
	}
	if a.FailureReason != "" {
		e.FieldStart("failureReason")
		e.Str(a.FailureReason)
	}
	if a.Status == checkout.StatusSucceeded {
		e.FieldStart("purchaseRecorded")
		e.Bool(a.Recorded)
	}
	e.FieldStart("createdAt")
	e.Str(a.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updatedAt")
	e.Str(a.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}
