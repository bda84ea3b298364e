package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Persisted layout of the cart entry:
//
//	[{"type":"painting","paintingId":1,"size":"A3","quantity":2},
//	 {"type":"course","courseId":"course-2","quantity":1}]
//
// The decoder also accepts the browser layout that embedded whole product
// records ("painting":{"id":..}, "size":{"name":..}, "course":{"id":..}).

// EncodeItems serializes line items in cart order.
func EncodeItems(items []Item) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		switch it := it.(type) {
		case PhysicalItem:
			e.FieldStart("type")
			e.Str(string(KindPainting))
			e.FieldStart("paintingId")
			e.Int(it.PaintingID)
			e.FieldStart("size")
			e.Str(it.Size)
			e.FieldStart("quantity")
			e.Int(it.Quantity)
		case DigitalItem:
			e.FieldStart("type")
			e.Str(string(KindCourse))
			e.FieldStart("courseId")
			e.Str(it.CourseID)
			e.FieldStart("quantity")
			e.Int(1)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeItems parses a persisted cart. Any structural problem, unknown
// tag, invalid quantity or duplicate line rejects the whole blob.
func DecodeItems(data []byte) ([]Item, error) {
	d := jx.DecodeBytes(data)
	items := []Item{}
	seen := make(map[Key]bool)

	if err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeItem(d)
		if err != nil {
			return err
		}
		if seen[it.Key()] {
			return errors.Errorf("duplicate line item %s", it.Key())
		}
		seen[it.Key()] = true
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	if err := expectEOF(d); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return items, nil
}

type rawItem struct {
	kind        string
	paintingID  int
	hasPainting bool
	size        string
	hasSize     bool
	courseID    string
	quantity    int
	hasQty      bool
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var raw rawItem
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "type":
			raw.kind, err = d.Str()
		case "paintingId":
			raw.paintingID, err = d.Int()
			raw.hasPainting = true
		case "painting":
			raw.paintingID, err = decodeRecordInt(d, "id")
			raw.hasPainting = true
		case "size":
			raw.size, err = decodeNameOrRecord(d, "name")
			raw.hasSize = true
		case "courseId":
			raw.courseID, err = d.Str()
		case "course":
			raw.courseID, err = decodeNameOrRecord(d, "id")
		case "quantity":
			raw.quantity, err = d.Int()
			raw.hasQty = true
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, err
	}

	switch Kind(raw.kind) {
	case KindPainting:
		if !raw.hasPainting || !raw.hasSize {
			return nil, errors.New("painting item without painting id or size")
		}
		if !raw.hasQty || raw.quantity < 1 {
			return nil, errors.Errorf("painting %d: invalid quantity %d", raw.paintingID, raw.quantity)
		}
		return PhysicalItem{PaintingID: raw.paintingID, Size: raw.size, Quantity: raw.quantity}, nil
	case KindCourse:
		if raw.courseID == "" {
			return nil, errors.New("course item without course id")
		}
		if raw.hasQty && raw.quantity != 1 {
			return nil, errors.Errorf("course %s: quantity must be 1, got %d", raw.courseID, raw.quantity)
		}
		return DigitalItem{CourseID: raw.courseID}, nil
	default:
		return nil, errors.Errorf("unknown item type %q", raw.kind)
	}
}

// decodeNameOrRecord reads either a string or an object holding the string
// under field.
func decodeNameOrRecord(d *jx.Decoder, field string) (string, error) {
	if d.Next() != jx.Object {
		return d.Str()
	}
	var v string
	found := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		found = true
		var err error
		v, err = d.Str()
		return err
	})
	if err == nil && !found {
		err = errors.Errorf("record without %q", field)
	}
	return v, err
}

func decodeRecordInt(d *jx.Decoder, field string) (int, error) {
	var v int
	found := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		found = true
		var err error
		v, err = d.Int()
		return err
	})
	if err == nil && !found {
		err = errors.Errorf("record without %q", field)
	}
	return v, err
}

// EncodeEntitlements serializes purchased course ids.
func EncodeEntitlements(ids []string) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, id := range ids {
		e.Str(id)
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeEntitlements parses purchased course ids, dropping repeats.
func DecodeEntitlements(data []byte) ([]string, error) {
	d := jx.DecodeBytes(data)
	ids := []string{}
	seen := make(map[string]bool)

	if err := d.Arr(func(d *jx.Decoder) error {
		id, err := d.Str()
		if err != nil {
			return err
		}
		if id == "" {
			return errors.New("empty course id")
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode entitlements")
	}
	if err := expectEOF(d); err != nil {
		return nil, errors.Wrap(err, "decode entitlements")
	}
	return ids, nil
}

func expectEOF(d *jx.Decoder) error {
	if tt := d.Next(); tt != jx.Invalid {
		return errors.Errorf("unexpected trailing %s", tt)
	}
	return nil
}
