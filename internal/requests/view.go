package requests

import "part-request-portal-api-server/internal/models"

// Project renders a stored request for the given caller. Cost center and
// reservation are administrative fields and are withheld from submitters.
func Project(id models.Identity, r models.PartRequest) models.PartRequestView {
	v := models.PartRequestView{
		ID:                 r.ID,
		OSNumber:           r.OSNumber,
		RegistrationNumber: r.RegistrationNumber,
		RequesterName:      r.RequesterName,
		RequestDate:        r.RequestDate.UTC().Format(models.ISOTimeLayout),
		Status:             r.Status,
		Items:              append([]models.RequestItem{}, r.Items...),
	}
	if id.IsAdmin() {
		v.CostCenter = r.CostCenter
		v.Reservation = r.Reservation
	}
	return v
}

// ProjectAll renders records in order. The result is never nil.
func ProjectAll(id models.Identity, records []models.PartRequest) []models.PartRequestView {
	out := make([]models.PartRequestView, 0, len(records))
	for _, r := range records {
		out = append(out, Project(id, r))
	}
	return out
}
