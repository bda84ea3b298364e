package checkout

import (
	"fmt"
	"regexp"

	"github.com/go-faster/errors"

	"github.com/shailyverma/art-studio/internal/domain/cart"
)

// ErrEmptyCart is returned when checkout starts without line items.
var ErrEmptyCart = errors.New("cart is empty")

// Form is the buyer's contact and shipping details. Shipping fields are
// required only when the cart holds physical items.
type Form struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
}

// ValidationError names the first form field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe   = regexp.MustCompile(`^\d{10}$`)
	pincodeRe = regexp.MustCompile(`^\d{6}$`)
)

type field struct {
	name  string
	words string
	value func(Form) string
}

var (
	contactFields = []field{
		{"firstName", "first name", func(f Form) string { return f.FirstName }},
		{"lastName", "last name", func(f Form) string { return f.LastName }},
		{"email", "email", func(f Form) string { return f.Email }},
		{"phone", "phone", func(f Form) string { return f.Phone }},
	}
	shippingFields = []field{
		{"address", "address", func(f Form) string { return f.Address }},
		{"city", "city", func(f Form) string { return f.City }},
		{"state", "state", func(f Form) string { return f.State }},
		{"pincode", "pincode", func(f Form) string { return f.Pincode }},
	}
)

// Validate returns the first failing rule, or nil. Presence is checked for
// all required fields before any format rule.
func Validate(f Form, hasPhysical bool) *ValidationError {
	required := contactFields
	if hasPhysical {
		required = append(append([]field{}, contactFields...), shippingFields...)
	}
	for _, fd := range required {
		if fd.value(f) == "" {
			return &ValidationError{Field: fd.name, Message: "Please fill in your " + fd.words}
		}
	}

	if !emailRe.MatchString(f.Email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if !phoneRe.MatchString(f.Phone) {
		return &ValidationError{Field: "phone", Message: "Please enter a valid 10-digit phone number"}
	}
	if hasPhysical && !pincodeRe.MatchString(f.Pincode) {
		return &ValidationError{Field: "pincode", Message: "Please enter a valid 6-digit pincode"}
	}
	return nil
}

// Description summarizes items for the payment provider. Counts are of
// line items, not units.
func Description(items []cart.Item) string {
	physical, digital := cart.Count(items)
	switch {
	case digital > 0 && physical > 0:
		return fmt.Sprintf("%d course(s) + %d painting(s)", digital, physical)
	case digital > 0:
		return fmt.Sprintf("%d digital course(s)", digital)
	default:
		return fmt.Sprintf("%d painting(s)", physical)
	}
}

// shippingNote is the address note passed to the provider.
func shippingNote(f Form, hasPhysical bool) string {
	if !hasPhysical {
		return "Digital product - no shipping"
	}
	return fmt.Sprintf("%s, %s, %s - %s", f.Address, f.City, f.State, f.Pincode)
}

func fullName(f Form) string {
	return f.FirstName + " " + f.LastName
}
