package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/shailyverma/art-studio/internal/domain/cart"
)

func (h *Handler) store(r *http.Request) *cart.Store {
	return h.carts.Get(r.Context(), SessionFromContext(r.Context()))
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, store *cart.Store) {
	snap := store.Snapshot()
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeCart(e, h.catalog, snap)
	})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, http.StatusOK, h.store(r))
}

// AddPainting adds one unit of a painting size. Out of stock sizes are
// accepted; stock is advisory.
func (h *Handler) AddPainting(w http.ResponseWriter, r *http.Request) {
	var (
		paintingID int
		sizeName   string
		hasID      bool
	)
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "paintingId":
			paintingID, err = d.Int()
			hasID = true
		case "size":
			sizeName, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !hasID || sizeName == "" {
		writeError(w, r, badRequest("paintingId and size are required"))
		return
	}

	painting, err := h.catalog.PaintingByID(paintingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := painting.Size(sizeName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	store := h.store(r)
	if err := store.AddPhysicalItem(r.Context(), painting.ID, size); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

func paintingLine(r *http.Request) (int, string, error) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		return 0, "", badRequest("invalid painting id %q", vars["id"])
	}
	return id, vars["size"], nil
}

// UpdatePainting sets the quantity of a painting line; zero removes it.
func (h *Handler) UpdatePainting(w http.ResponseWriter, r *http.Request) {
	id, size, err := paintingLine(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		quantity int
		hasQty   bool
	)
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		quantity, err = d.Int()
		hasQty = true
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !hasQty {
		writeError(w, r, badRequest("quantity is required"))
		return
	}

	store := h.store(r)
	if err := store.UpdateQuantity(r.Context(), id, size, quantity); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

func (h *Handler) RemovePainting(w http.ResponseWriter, r *http.Request) {
	id, size, err := paintingLine(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	store := h.store(r)
	if err := store.RemoveItem(r.Context(), cart.PhysicalKey(id, size)); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// AddCourse adds a course: 201 when added, 200 when it was already in the
// cart, 409 when the visitor already owns it.
func (h *Handler) AddCourse(w http.ResponseWriter, r *http.Request) {
	var courseID string
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "courseId" {
			return d.Skip()
		}
		var err error
		courseID, err = d.Str()
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if courseID == "" {
		writeError(w, r, badRequest("courseId is required"))
		return
	}
	if _, err := h.catalog.CourseByID(courseID); err != nil {
		writeError(w, r, err)
		return
	}

	store := h.store(r)
	res, err := store.AddDigitalItem(r.Context(), courseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	switch res {
	case cart.Added:
		h.writeCart(w, http.StatusCreated, store)
	case cart.AlreadyInCart:
		h.writeCart(w, http.StatusOK, store)
	default:
		writeError(w, r, errAlreadyOwned)
	}
}

func (h *Handler) RemoveCourse(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if err := store.RemoveItem(r.Context(), cart.DigitalKey(mux.Vars(r)["id"])); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if err := store.ClearCart(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// SetOpen toggles the cart drawer.
func (h *Handler) SetOpen(w http.ResponseWriter, r *http.Request) {
	var (
		open    bool
		hasOpen bool
	)
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "open" {
			return d.Skip()
		}
		var err error
		open, err = d.Bool()
		hasOpen = true
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !hasOpen {
		writeError(w, r, badRequest("open is required"))
		return
	}

	store := h.store(r)
	store.SetOpen(open)
	h.writeCart(w, http.StatusOK, store)
}
