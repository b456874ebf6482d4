package requests

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"part-request-portal-api-server/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateInput is everything a caller may supply when creating a request.
// Status, requestDate and the request id are assigned server-side.
type CreateInput struct {
	OSNumber           string               `json:"osNumber"`
	CostCenter         string               `json:"costCenter"`
	Reservation        string               `json:"reservation"`
	RegistrationNumber string               `json:"registrationNumber" validate:"required"`
	RequesterName      string               `json:"requesterName" validate:"required"`
	Items              []models.RequestItem `json:"items" validate:"min=1,dive"`
}

// Update is a partial edit. A nil field is left untouched in the store.
type Update struct {
	OSNumber           *string               `json:"osNumber"`
	CostCenter         *string               `json:"costCenter"`
	Reservation        *string               `json:"reservation"`
	RegistrationNumber *string               `json:"registrationNumber" validate:"omitnil,min=1"`
	RequesterName      *string               `json:"requesterName" validate:"omitnil,min=1"`
	Items              *[]models.RequestItem `json:"items" validate:"omitnil,min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Message: "is required"}
	case "min":
		if fe.Kind() == reflect.String {
			return &ValidationError{Field: field, Message: "is required"}
		}
		if fe.Field() == "items" {
			return &ValidationError{Field: field, Message: "at least one item is required"}
		}
		return &ValidationError{Field: field, Message: fmt.Sprintf("must have at least %s entries", fe.Param())}
	case "gt":
		return &ValidationError{Field: field, Message: "must be a positive number"}
	}
	return &ValidationError{Field: field, Message: fmt.Sprintf("failed %q validation", fe.Tag())}
}

func trimItems(items []models.RequestItem) {
	for i := range items {
		it := &items[i]
		it.ID = strings.TrimSpace(it.ID)
		it.Material = strings.TrimSpace(it.Material)
		it.Equipment = strings.TrimSpace(it.Equipment)
		it.EquipmentOS = strings.TrimSpace(it.EquipmentOS)
		it.Application = strings.TrimSpace(it.Application)
		it.Location = strings.TrimSpace(it.Location)
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// assignItemIDs gives new items an id and rejects duplicates within the request.
func assignItemIDs(items []models.RequestItem) error {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if _, dup := seen[items[i].ID]; dup {
			return &ValidationError{Field: fmt.Sprintf("items[%d].id", i), Message: "duplicate item id"}
		}
		seen[items[i].ID] = struct{}{}
	}
	return nil
}

// normalizeCreate trims, validates and assigns item ids. It returns a copy.
func normalizeCreate(id models.Identity, in CreateInput) (CreateInput, error) {
	in.OSNumber = strings.TrimSpace(in.OSNumber)
	in.CostCenter = strings.TrimSpace(in.CostCenter)
	in.Reservation = strings.TrimSpace(in.Reservation)
	in.RegistrationNumber = strings.TrimSpace(in.RegistrationNumber)
	if !id.IsAdmin() {
		// Administrative fields are assigned later by an admin.
		in.OSNumber, in.CostCenter, in.Reservation = "", "", ""
		if id.HasScope() {
			if in.RegistrationNumber == "" {
				in.RegistrationNumber = id.RegistrationNumber
			} else if in.RegistrationNumber != id.RegistrationNumber {
				return in, &ValidationError{Field: "registrationNumber", Message: "does not match the session's registration number"}
			}
		}
	}
	in.RequesterName = strings.TrimSpace(in.RequesterName)
	in.Items = append([]models.RequestItem(nil), in.Items...)
	trimItems(in.Items)

	if err := validate.Struct(in); err != nil {
		return in, validationError(err)
	}
	if err := assignItemIDs(in.Items); err != nil {
		return in, err
	}
	return in, nil
}

func normalizeUpdate(u Update) (Update, error) {
	u.OSNumber = trimPtr(u.OSNumber)
	u.CostCenter = trimPtr(u.CostCenter)
	u.Reservation = trimPtr(u.Reservation)
	u.RegistrationNumber = trimPtr(u.RegistrationNumber)
	u.RequesterName = trimPtr(u.RequesterName)
	if u.Items != nil {
		items := append([]models.RequestItem(nil), (*u.Items)...)
		trimItems(items)
		u.Items = &items
	}

	if err := validate.Struct(u); err != nil {
		return u, validationError(err)
	}
	if u.Items != nil {
		if err := assignItemIDs(*u.Items); err != nil {
			return u, err
		}
	}
	return u, nil
}
