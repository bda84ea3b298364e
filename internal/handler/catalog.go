package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/shailyverma/art-studio/internal/domain/cart"
	"github.com/shailyverma/art-studio/internal/domain/catalog"
)

// ListPaintings lists paintings, optionally filtered by ?category=.
func (h *Handler) ListPaintings(w http.ResponseWriter, r *http.Request) {
	paintings := h.catalog.Paintings(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodePaintings(e, paintings)
	})
}

// GetPainting returns a painting with its related paintings.
func (h *Handler) GetPainting(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.PaintingBySlug(mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	related := h.catalog.RelatedPaintings(p.ID, p.Category, catalog.DefaultRelatedLimit)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("painting")
		encodePainting(e, *p)
		e.FieldStart("related")
		encodePaintings(e, related)
		e.ObjEnd()
	})
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses := h.catalog.Courses()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range courses {
			encodeCourse(e, c)
		}
		e.ArrEnd()
	})
}

// GetCourse returns a course and whether the visitor owns it or has it in
// the cart.
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.CourseBySlug(mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	store := h.carts.Get(r.Context(), SessionFromContext(r.Context()))
	owned := store.Owns(c.ID)
	inCart := false
	for _, it := range store.Items() {
		if it.Key() == cart.DigitalKey(c.ID) {
			inCart = true
			break
		}
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("course")
		encodeCourse(e, *c)
		e.FieldStart("owned")
		e.Bool(owned)
		e.FieldStart("inCart")
		e.Bool(inCart)
		e.ObjEnd()
	})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.catalog.Categories()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeStrings(e, categories)
	})
}

// Library lists the courses the visitor has purchased, in purchase order.
func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	store := h.carts.Get(r.Context(), SessionFromContext(r.Context()))

	var owned []catalog.Course
	for _, id := range store.Entitlements() {
		c, err := h.catalog.CourseByID(id)
		if err != nil {
			continue
		}
		owned = append(owned, *c)
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("courses")
		e.ArrStart()
		for _, c := range owned {
			encodeCourse(e, c)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
