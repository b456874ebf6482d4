package requests

import (
	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/store"
)

// Scope is the record set visible to one caller. Empty means the caller
// sees nothing and no subscription should be opened.
type Scope struct {
	Query store.Query
	Empty bool
}

// ResolveScope maps a caller identity to its visible record set.
//
// Administrators see every request, newest first. Submitters see their own
// unfinished requests grouped by status, newest first within a status.
// Submitters without a scope key see nothing.
func ResolveScope(id models.Identity) Scope {
	if id.IsAdmin() {
		return Scope{Query: store.Query{
			OrderBy: []store.SortKey{{Field: store.FieldRequestDate, Desc: true}},
		}}
	}
	if !id.HasScope() {
		return Scope{Empty: true}
	}
	return Scope{Query: store.Query{
		Where: []store.Condition{
			{Field: store.FieldRegistrationNumber, Op: store.OpEq, Value: id.RegistrationNumber},
			{Field: store.FieldStatus, Op: store.OpNe, Value: string(models.StatusCompleted)},
		},
		OrderBy: []store.SortKey{
			{Field: store.FieldStatus},
			{Field: store.FieldRequestDate, Desc: true},
		},
	}}
}

// owns reports whether a submitter's scope key covers r. Completed
// requests stay readable to their owner even though the live list drops them.
func owns(id models.Identity, r models.PartRequest) bool {
	return id.IsAdmin() || (id.HasScope() && r.RegistrationNumber == id.RegistrationNumber)
}
