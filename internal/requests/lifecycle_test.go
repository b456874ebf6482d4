package requests

import (
	"testing"

	"part-request-portal-api-server/internal/models"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []models.RequestStatus{
	models.StatusPending,
	models.StatusAvailable,
	models.StatusOutOfStock,
	models.StatusCompleted,
}

func TestCheckTransition_Table(t *testing.T) {
	legal := map[[2]models.RequestStatus]Event{
		{models.StatusPending, models.StatusAvailable}:    EventSetStatus,
		{models.StatusPending, models.StatusOutOfStock}:   EventSetStatus,
		{models.StatusAvailable, models.StatusOutOfStock}: EventSetStatus,
		{models.StatusOutOfStock, models.StatusAvailable}: EventSetStatus,
		{models.StatusAvailable, models.StatusCompleted}:  EventFinalize,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			for _, ev := range []Event{EventSetStatus, EventFinalize} {
				err := CheckTransition(from, ev, to)
				want, ok := legal[[2]models.RequestStatus{from, to}]
				if ok && want == ev {
					assert.NoError(t, err, "%s %s -> %s", ev, from, to)
					continue
				}
				var terr *TransitionError
				assert.ErrorAs(t, err, &terr, "%s %s -> %s", ev, from, to)
			}
		}
	}
}

func TestCheckTransition_TerminalError(t *testing.T) {
	err := CheckTransition(models.StatusCompleted, EventSetStatus, models.StatusPending)

	var terr *TransitionError
	if assert.ErrorAs(t, err, &terr) {
		assert.True(t, terr.Terminal())
		assert.Contains(t, terr.Error(), "terminal state")
	}
}

func TestCheckTransition_FinalizeOnlyFromAvailable(t *testing.T) {
	for _, from := range []models.RequestStatus{models.StatusPending, models.StatusOutOfStock, models.StatusCompleted} {
		assert.Error(t, CheckTransition(from, EventFinalize, models.StatusCompleted), from)
	}
	assert.NoError(t, CheckTransition(models.StatusAvailable, EventFinalize, models.StatusCompleted))
}

func TestCheckMutable(t *testing.T) {
	assert.NoError(t, CheckMutable(models.StatusPending, EventEdit))
	assert.NoError(t, CheckMutable(models.StatusAvailable, EventDelete))

	err := CheckMutable(models.StatusCompleted, EventDelete)
	var terr *TransitionError
	if assert.ErrorAs(t, err, &terr) {
		assert.True(t, terr.Terminal())
		assert.Equal(t, EventDelete, terr.Event)
	}
}
