package requests

import (
	"strings"

	"part-request-portal-api-server/internal/models"
)

// matchesTerm does a case-insensitive substring match over the work-order
// number, requester name and item materials.
func matchesTerm(r models.PartRequest, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.OSNumber), term) ||
		strings.Contains(strings.ToLower(r.RequesterName), term) {
		return true
	}
	for _, it := range r.Items {
		if strings.Contains(strings.ToLower(it.Material), term) {
			return true
		}
	}
	return false
}
