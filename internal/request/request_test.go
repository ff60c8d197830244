package request

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New("10.0.0.1", "10.0.0.2", 7, 3)

	_, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, r.Arrival)
	assert.Equal(t, 3, r.Work)
	assert.Equal(t, "10.0.0.1 -> 10.0.0.2, 3 cycles", r.String())
}

func TestNew_WorkAtLeastOne(t *testing.T) {
	assert.Equal(t, 1, New("a", "b", 0, 0).Work)
	assert.Equal(t, 1, New("a", "b", 0, -4).Work)
	assert.NotEqual(t, New("a", "b", 0, 1).ID, New("a", "b", 0, 1).ID)
}
