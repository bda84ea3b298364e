package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shailyverma/art-studio/internal/domain/catalog"
	"github.com/shailyverma/art-studio/internal/storage"
)

// Storage keys of the two independently persisted entries.
const (
	ItemsKey        = "shaily-verma-cart"
	EntitlementsKey = "shaily-verma-purchased-courses"
)

// AddResult reports the outcome of AddDigitalItem.
type AddResult int

const (
	// Added means a new line item was appended.
	Added AddResult = iota
	// AlreadyInCart means the course was in the cart; nothing changed.
	AlreadyInCart
	// AlreadyOwned means the course is an entitlement; nothing changed.
	AlreadyOwned
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyInCart:
		return "already_in_cart"
	case AlreadyOwned:
		return "already_owned"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of a Store with derived totals.
type Snapshot struct {
	Items            []Item
	Entitlements     []string
	Open             bool
	TotalItems       int
	TotalPrice       decimal.Decimal
	HasPhysicalItems bool
	HasDigitalItems  bool
}

// Store owns one visitor's line items and entitlements. Every mutation is
// written through to storage before it becomes visible; if a write fails
// the in-memory state keeps its previous value and the error is returned.
//
// Store is safe for concurrent use. Observers run after the mutation has
// been committed, outside the Store lock.
type Store struct {
	kv      storage.KV
	catalog catalog.Provider
	lg      *zap.Logger

	mu           sync.Mutex
	items        []Item
	entitlements []string
	open         bool

	obsMu     sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int
}

// Load restores a Store from kv. Missing entries mean a first visit;
// malformed entries are logged and treated the same way. Line items that
// reference products unknown to the catalog are dropped.
func Load(ctx context.Context, kv storage.KV, p catalog.Provider, lg *zap.Logger) *Store {
	s := &Store{
		kv:           kv,
		catalog:      p,
		lg:           lg,
		items:        []Item{},
		entitlements: []string{},
		observers:    make(map[int]func(Snapshot)),
	}

	if data, ok := s.read(ctx, ItemsKey); ok {
		items, err := DecodeItems(data)
		if err != nil {
			lg.Warn("Discarding corrupt cart", zap.Error(err))
		} else {
			s.items = s.knownItems(items)
		}
	}

	if data, ok := s.read(ctx, EntitlementsKey); ok {
		ids, err := DecodeEntitlements(data)
		if err != nil {
			lg.Warn("Discarding corrupt entitlements", zap.Error(err))
		} else {
			s.entitlements = ids
		}
	}

	// A purchase may have been recorded without the cart write that follows it.
	s.items = slices.DeleteFunc(s.items, func(it Item) bool {
		d, ok := it.(DigitalItem)
		return ok && slices.Contains(s.entitlements, d.CourseID)
	})

	return s
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.kv.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, false
	case err != nil:
		s.lg.Warn("Failed to read cart storage, starting empty", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (s *Store) knownItems(items []Item) []Item {
	known := items[:0]
	for _, it := range items {
		if _, err := UnitPrice(s.catalog, it); err != nil {
			s.lg.Warn("Dropping cart item missing from catalog", zap.Stringer("item", it.Key()), zap.Error(err))
			continue
		}
		known = append(known, it)
	}
	return known
}

// change is a bit set of the state components a mutation touched.
type change uint8

const (
	changeItems change = 1 << iota
	changeEntitlements
	changeOpen
)

type state struct {
	items        []Item
	entitlements []string
	open         bool
}

// mutate applies fn to a copy of the state, persists the touched entries
// (entitlements before items) and commits. Observers are notified when
// anything changed.
func (s *Store) mutate(ctx context.Context, fn func(st *state) change) error {
	s.mu.Lock()

	st := state{
		items:        slices.Clone(s.items),
		entitlements: slices.Clone(s.entitlements),
		open:         s.open,
	}
	changed := fn(&st)
	if changed == 0 {
		s.mu.Unlock()
		return nil
	}

	var err error
	if changed&changeEntitlements != 0 {
		if err = s.kv.Set(ctx, EntitlementsKey, EncodeEntitlements(st.entitlements)); err != nil {
			s.mu.Unlock()
			return errors.Wrap(err, "persist entitlements")
		}
		s.entitlements = st.entitlements
	}
	if changed&changeItems != 0 {
		if err = s.kv.Set(ctx, ItemsKey, EncodeItems(st.items)); err != nil {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			if changed&changeEntitlements != 0 {
				s.notify(snap)
			}
			return errors.Wrap(err, "persist cart")
		}
		s.items = st.items
	}
	if changed&changeOpen != 0 {
		s.open = st.open
	}

	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// AddPhysicalItem adds one unit of the painting in the given size, merging
// with an existing line, and opens the cart. Stock is not checked here.
func (s *Store) AddPhysicalItem(ctx context.Context, paintingID int, size catalog.Size) error {
	return s.mutate(ctx, func(st *state) change {
		key := PhysicalKey(paintingID, size.Name)
		if i := indexOf(st.items, key); i >= 0 {
			line := st.items[i].(PhysicalItem)
			line.Quantity++
			st.items[i] = line
		} else {
			st.items = append(st.items, PhysicalItem{PaintingID: paintingID, Size: size.Name, Quantity: 1})
		}
		st.open = true
		return changeItems | changeOpen
	})
}

// AddDigitalItem adds the course unless it is owned or already in the cart.
// The cart is opened only when a line is actually added.
func (s *Store) AddDigitalItem(ctx context.Context, courseID string) (AddResult, error) {
	result := Added
	err := s.mutate(ctx, func(st *state) change {
		if slices.Contains(st.entitlements, courseID) {
			result = AlreadyOwned
			return 0
		}
		if indexOf(st.items, DigitalKey(courseID)) >= 0 {
			result = AlreadyInCart
			return 0
		}
		st.items = append(st.items, DigitalItem{CourseID: courseID})
		st.open = true
		return changeItems | changeOpen
	})
	return result, err
}

// RemoveItem removes the line identified by key. Removing a missing line is
// a no-op.
func (s *Store) RemoveItem(ctx context.Context, key Key) error {
	return s.mutate(ctx, func(st *state) change {
		i := indexOf(st.items, key)
		if i < 0 {
			return 0
		}
		st.items = slices.Delete(st.items, i, i+1)
		return changeItems
	})
}

// UpdateQuantity sets the quantity of a painting line. A quantity of zero
// or less removes the line. Course quantities cannot be changed.
func (s *Store) UpdateQuantity(ctx context.Context, paintingID int, sizeName string, quantity int) error {
	key := PhysicalKey(paintingID, sizeName)
	if quantity <= 0 {
		return s.RemoveItem(ctx, key)
	}
	return s.mutate(ctx, func(st *state) change {
		i := indexOf(st.items, key)
		if i < 0 {
			return 0
		}
		line := st.items[i].(PhysicalItem)
		if line.Quantity == quantity {
			return 0
		}
		line.Quantity = quantity
		st.items[i] = line
		return changeItems
	})
}

// ClearCart removes every line item. Entitlements are untouched.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, func(st *state) change {
		if len(st.items) == 0 {
			return 0
		}
		st.items = []Item{}
		return changeItems
	})
}

// RecordPurchaseCompletion grants every course among items and removes the
// paid lines from the cart. items is the cart as it was charged for; lines
// added since stay. The entitlements entry is written before the cart entry;
// the two writes are not atomic.
func (s *Store) RecordPurchaseCompletion(ctx context.Context, items []Item) error {
	return s.mutate(ctx, func(st *state) change {
		var changed change
		for _, it := range items {
			d, ok := it.(DigitalItem)
			if !ok || slices.Contains(st.entitlements, d.CourseID) {
				continue
			}
			st.entitlements = append(st.entitlements, d.CourseID)
			changed |= changeEntitlements
		}
		// Paid lines leave the cart. Lines added or grown after items was
		// captured keep their unpaid part. The cart is written even when
		// nothing changed in it.
		paid := make(map[Key]int, len(items))
		for _, it := range items {
			paid[it.Key()] += it.Units()
		}
		kept := []Item{}
		for _, it := range st.items {
			n, ok := paid[it.Key()]
			if !ok {
				kept = append(kept, it)
				continue
			}
			if p, physical := it.(PhysicalItem); physical && p.Quantity > n {
				p.Quantity -= n
				kept = append(kept, p)
			}
		}
		st.items = kept
		return changed | changeItems
	})
}

// SetOpen toggles cart drawer visibility. It is not persisted.
func (s *Store) SetOpen(open bool) {
	_ = s.mutate(context.Background(), func(st *state) change {
		if st.open == open {
			return 0
		}
		st.open = open
		return changeOpen
	})
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Entitlements returns the purchased course ids in purchase order.
func (s *Store) Entitlements() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entitlements)
}

// Owns reports whether courseID has been purchased.
func (s *Store) Owns(courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.entitlements, courseID)
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Store) TotalItems() int {
	return TotalItems(s.Items())
}

func (s *Store) TotalPrice() decimal.Decimal {
	return TotalPrice(s.catalog, s.Items())
}

func (s *Store) HasPhysicalItems() bool {
	return HasPhysicalItems(s.Items())
}

func (s *Store) HasDigitalItems() bool {
	return HasDigitalItems(s.Items())
}

// Snapshot returns the current state with derived values computed from one
// consistent read.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	items := slices.Clone(s.items)
	physical, digital := Count(items)
	return Snapshot{
		Items:            items,
		Entitlements:     slices.Clone(s.entitlements),
		Open:             s.open,
		TotalItems:       TotalItems(items),
		TotalPrice:       TotalPrice(s.catalog, items),
		HasPhysicalItems: physical > 0,
		HasDigitalItems:  digital > 0,
	}
}

// Subscribe registers fn to receive a Snapshot after every committed
// change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.obsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
