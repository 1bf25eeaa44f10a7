package address

import (
	"strings"

	"erpcore/internal/models"

	"github.com/google/uuid"
)

// addressKey is the normalised identity of an address: every text field
// trimmed, inner whitespace collapsed and lower-cased, nil read as "".
type addressKey struct {
	street, number, neighborhood, complement, city, state, zip, country string
}

func keyOf(a models.Address) addressKey {
	return addressKey{
		street:       normalize(a.Street),
		number:       normalizePtr(a.Number),
		neighborhood: normalizePtr(a.Neighborhood),
		complement:   normalizePtr(a.Complement),
		city:         normalize(a.City),
		state:        normalize(a.State),
		zip:          normalize(a.ZipCode),
		country:      normalize(a.Country),
	}
}

// WouldDuplicate reports whether candidate matches any of existing on all
// comparable fields. The address with id excluding, when set, is skipped so
// an update is not compared against itself.
func WouldDuplicate(candidate models.Address, existing []models.Address, excluding *uuid.UUID) bool {
	want := keyOf(candidate)
	for _, e := range existing {
		if excluding != nil && e.ID == *excluding {
			continue
		}
		if keyOf(e) == want {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func normalizePtr(s *string) string {
	if s == nil {
		return ""
	}
	return normalize(*s)
}
