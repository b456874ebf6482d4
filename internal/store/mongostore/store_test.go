package mongostore

import (
	"testing"

	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterDoc_Empty(t *testing.T) {
	f, err := filterDoc(store.Query{})
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, f)
}

func TestFilterDoc_SubmitterScope(t *testing.T) {
	q := store.Query{Where: []store.Condition{
		{Field: store.FieldRegistrationNumber, Op: store.OpEq, Value: "123"},
		{Field: store.FieldStatus, Op: store.OpNe, Value: "completed"},
	}}
	f, err := filterDoc(q)
	require.NoError(t, err)

	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "registrationNumber", Value: "123"}},
		bson.D{{Key: "status", Value: bson.D{{Key: "$ne", Value: "completed"}}}},
	}}}
	assert.Equal(t, want, f)
}

func TestFilterDoc_IDIsObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	f, err := filterDoc(store.Query{Where: []store.Condition{
		{Field: store.FieldID, Op: store.OpEq, Value: oid.Hex()},
	}})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}}, f)

	_, err = filterDoc(store.Query{Where: []store.Condition{
		{Field: store.FieldID, Op: store.OpEq, Value: "not-hex"},
	}})
	assert.Error(t, err)
}

func TestSortDoc(t *testing.T) {
	q := store.Query{OrderBy: []store.SortKey{
		{Field: store.FieldStatus},
		{Field: store.FieldRequestDate, Desc: true},
	}}
	assert.Equal(t, bson.D{
		{Key: "status", Value: 1},
		{Key: "requestDate", Value: -1},
	}, sortDoc(q))
}

func TestPatchDoc_OnlySetFields(t *testing.T) {
	name := "Bruno"
	status := models.StatusAvailable
	set := patchDoc(store.Patch{RequesterName: &name, Status: &status})

	assert.Equal(t, bson.M{"requesterName": "Bruno", "status": models.StatusAvailable}, set)
	assert.NotContains(t, set, "costCenter")
	assert.Empty(t, patchDoc(store.Patch{}))
}
