package address

import (
	"strings"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/models"
	"erpcore/internal/validation"

	"github.com/google/uuid"
)

type Input struct {
	Street       string
	Number       *string
	Neighborhood *string
	Complement   *string
	City         string
	State        string
	ZipCode      string
	Country      string
	IsPrimary    bool
}

// Patch carries a partial update; nil fields are left untouched. An empty
// string clears an optional field and is ignored for a required one.
type Patch struct {
	Street       *string
	Number       *string
	Neighborhood *string
	Complement   *string
	City         *string
	State        *string
	ZipCode      *string
	Country      *string
	IsPrimary    *bool
}

func (in Input) toModel(userID uuid.UUID, now time.Time, defaultCountry string) (models.Address, error) {
	a := models.Address{
		ID:           uuid.New(),
		UserID:       userID,
		Street:       strings.TrimSpace(in.Street),
		Number:       trimOptional(in.Number),
		Neighborhood: trimOptional(in.Neighborhood),
		Complement:   trimOptional(in.Complement),
		City:         strings.TrimSpace(in.City),
		State:        strings.ToUpper(strings.TrimSpace(in.State)),
		ZipCode:      strings.TrimSpace(in.ZipCode),
		Country:      strings.TrimSpace(in.Country),
		IsPrimary:    in.IsPrimary,
		CreatedAt:    now,
	}
	if a.Country == "" {
		a.Country = defaultCountry
	}
	return a, check(a)
}

// apply returns a copy of cur with p applied and whether anything changed.
func (p Patch) apply(cur models.Address) (models.Address, bool, error) {
	next := cur
	setRequired(&next.Street, p.Street)
	setOptional(&next.Number, p.Number)
	setOptional(&next.Neighborhood, p.Neighborhood)
	setOptional(&next.Complement, p.Complement)
	setRequired(&next.City, p.City)
	if p.State != nil {
		s := strings.ToUpper(*p.State)
		setRequired(&next.State, &s)
	}
	setRequired(&next.ZipCode, p.ZipCode)
	setRequired(&next.Country, p.Country)
	if p.IsPrimary != nil {
		next.IsPrimary = *p.IsPrimary
	}
	if err := check(next); err != nil {
		return cur, false, err
	}
	return next, len(diff(cur, next)) > 0, nil
}

func check(a models.Address) error {
	var details []string
	if a.Street == "" {
		details = append(details, "street is required")
	}
	if a.City == "" {
		details = append(details, "city is required")
	}
	if !validation.IsStateCode(a.State) {
		details = append(details, "state must be a two-letter state code")
	}
	if a.ZipCode == "" {
		details = append(details, "zipCode is required")
	} else if len(a.ZipCode) > 10 {
		details = append(details, "zipCode must have at most 10 characters")
	}
	if len(details) > 0 {
		return apperrors.Validation("invalid address", details...)
	}
	return nil
}

func setRequired(dst *string, v *string) {
	if v == nil {
		return
	}
	if t := strings.TrimSpace(*v); t != "" {
		*dst = t
	}
}

func setOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	*dst = trimOptional(v)
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// OneLine renders the address for audit text.
func OneLine(a models.Address) string {
	var b strings.Builder
	b.WriteString(a.Street)
	if a.Number != nil {
		b.WriteString(", " + *a.Number)
	}
	if a.Complement != nil {
		b.WriteString(" - " + *a.Complement)
	}
	if a.Neighborhood != nil {
		b.WriteString(", " + *a.Neighborhood)
	}
	b.WriteString(", " + a.City + "/" + a.State)
	b.WriteString(", " + a.ZipCode)
	b.WriteString(", " + a.Country)
	return b.String()
}
