package lb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elastic-lb-sim/internal/request"
	"elastic-lb-sim/internal/server"
)

func poolWithLoads(t *testing.T, capacity int, loads ...int) []*server.Server {
	t.Helper()
	p := server.NewPool(len(loads), capacity)
	for range loads {
		require.NotNil(t, p.Activate())
	}
	active := p.Active()
	for i, n := range loads {
		for j := 0; j < n; j++ {
			require.NoError(t, active[i].Assign(request.New("a", "b", 0, 1)))
		}
	}
	return active
}

func TestPick(t *testing.T) {
	cases := []struct {
		name  string
		loads []int
		want  int
	}{
		{name: "shortest queue", loads: []int{3, 1, 2}, want: 1},
		{name: "tie goes to lowest id", loads: []int{2, 1, 1}, want: 1},
		{name: "all empty", loads: []int{0, 0, 0}, want: 0},
		{name: "full servers skipped", loads: []int{4, 4, 3}, want: 2},
		{name: "all full", loads: []int{4, 4}, want: -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Pick(poolWithLoads(t, 4, tc.loads...))
			if tc.want < 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.ID)
		})
	}
}

func TestPick_IgnoresInactive(t *testing.T) {
	p := server.NewPool(2, 4)
	assert.Nil(t, Pick(p.GetAllServers()))
	assert.Nil(t, Pick(nil))
}
