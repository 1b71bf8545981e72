package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_String(t *testing.T) {
	assert.Equal(t, "aggregate.main", New("aggregate", "main").String())
	assert.Equal(t, "step.aggregate.main", New("aggregate", "main").Reference())
	assert.Equal(t, "", Address{}.String())
	assert.True(t, Address{}.IsZero())
}

func TestPortRef_String(t *testing.T) {
	ref := PortRef{Step: New("aggregate", "main"), Port: "matrix_h5"}
	assert.Equal(t, "step.aggregate.main.output.matrix_h5", ref.String())
}

func TestAddress_RoundTrip(t *testing.T) {
	for _, id := range []string{"a.b", "parse_csv.manifest", "print.debug-1"} {
		t.Run(id, func(t *testing.T) {
			addr, err := Parse(id)
			require.NoError(t, err)
			assert.Equal(t, id, addr.String())
		})
	}
}
