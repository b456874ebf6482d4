// internal/models/part_request.go
package models

import "time"

// RequestStatus is the lifecycle state of a part request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusAvailable  RequestStatus = "available"
	StatusOutOfStock RequestStatus = "out_of_stock"
	StatusCompleted  RequestStatus = "completed"
)

// Valid reports whether s is one of the four known states.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAvailable, StatusOutOfStock, StatusCompleted:
		return true
	}
	return false
}

// RequestItem is one line of a part request.
type RequestItem struct {
	ID          string `bson:"id" json:"id"`
	Quantity    int    `bson:"quantity" json:"quantity" validate:"gt=0"`
	Material    string `bson:"material" json:"material" validate:"required"`
	Equipment   string `bson:"equipment" json:"equipment" validate:"required"`
	EquipmentOS string `bson:"equipmentOs" json:"equipmentOs" validate:"required"`
	Application string `bson:"application" json:"application" validate:"required"`
	Location    string `bson:"location" json:"location" validate:"required"`
}

// PartRequest is the canonical stored shape of a request.
// RequestDate is kept in the store's native time type.
type PartRequest struct {
	ID                 string        `bson:"-" json:"id"`
	OSNumber           string        `bson:"osNumber,omitempty" json:"osNumber,omitempty"`
	CostCenter         string        `bson:"costCenter,omitempty" json:"costCenter,omitempty"`
	Reservation        string        `bson:"reservation,omitempty" json:"reservation,omitempty"`
	RegistrationNumber string        `bson:"registrationNumber" json:"registrationNumber"`
	RequesterName      string        `bson:"requesterName" json:"requesterName"`
	RequestDate        time.Time     `bson:"requestDate" json:"requestDate"`
	Status             RequestStatus `bson:"status" json:"status"`
	Items              []RequestItem `bson:"items" json:"items"`
}

// Clone returns a deep copy so callers never share the items slice.
func (r PartRequest) Clone() PartRequest {
	out := r
	if r.Items != nil {
		out.Items = make([]RequestItem, len(r.Items))
		copy(out.Items, r.Items)
	}
	return out
}

// ISOTimeLayout matches the millisecond UTC form used for requestDate on the wire.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z"

// PartRequestView is the projection handed to callers.
type PartRequestView struct {
	ID                 string        `json:"id"`
	OSNumber           string        `json:"osNumber,omitempty"`
	CostCenter         string        `json:"costCenter,omitempty"`
	Reservation        string        `json:"reservation,omitempty"`
	RegistrationNumber string        `json:"registrationNumber"`
	RequesterName      string        `json:"requesterName"`
	RequestDate        string        `json:"requestDate"`
	Status             RequestStatus `json:"status"`
	Items              []RequestItem `json:"items"`
}
