package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultParams().Validate())

	cases := []struct {
		name   string
		mutate func(p *Params)
		err    error
	}{
		{"zero depth", func(p *Params) { p.MaxCallDepth = 0 }, ErrInvalidCallDepth},
		{"depth too big", func(p *Params) { p.MaxCallDepth = 1025 }, ErrInvalidCallDepth},
		{"code size", func(p *Params) { p.MaxCodeSize = 0 }, ErrInvalidCodeSize},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			p := DefaultParams()
			c.mutate(p)
			assert.ErrorIs(t, p.Validate(), c.err)
		})
	}
}
