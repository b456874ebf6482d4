package store

import (
	"sort"

	"part-request-portal-api-server/internal/models"
)

// fieldValue returns the string form of a filterable field.
func fieldValue(r models.PartRequest, field string) string {
	switch field {
	case FieldID:
		return r.ID
	case FieldOSNumber:
		return r.OSNumber
	case FieldCostCenter:
		return r.CostCenter
	case FieldReservation:
		return r.Reservation
	case FieldRegistrationNumber:
		return r.RegistrationNumber
	case FieldRequesterName:
		return r.RequesterName
	case FieldStatus:
		return string(r.Status)
	}
	return ""
}

// Matches evaluates q's conditions against r.
func (q Query) Matches(r models.PartRequest) bool {
	for _, c := range q.Where {
		v := fieldValue(r, c.Field)
		switch c.Op {
		case OpEq:
			if v != c.Value {
				return false
			}
		case OpNe:
			if v == c.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Sort orders records in place by q.OrderBy. Ties keep their input order.
func (q Query) Sort(records []models.PartRequest) {
	if len(q.OrderBy) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range q.OrderBy {
			c := compare(records[i], records[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(a, b models.PartRequest, field string) int {
	if field == FieldRequestDate {
		return a.RequestDate.Compare(b.RequestDate)
	}
	av, bv := fieldValue(a, field), fieldValue(b, field)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}

// Apply copies p's non-nil fields onto r.
func (p Patch) Apply(r *models.PartRequest) {
	if p.OSNumber != nil {
		r.OSNumber = *p.OSNumber
	}
	if p.CostCenter != nil {
		r.CostCenter = *p.CostCenter
	}
	if p.Reservation != nil {
		r.Reservation = *p.Reservation
	}
	if p.RegistrationNumber != nil {
		r.RegistrationNumber = *p.RegistrationNumber
	}
	if p.RequesterName != nil {
		r.RequesterName = *p.RequesterName
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Items != nil {
		r.Items = make([]models.RequestItem, len(p.Items))
		copy(r.Items, p.Items)
	}
}
