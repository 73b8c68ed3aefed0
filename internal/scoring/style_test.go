package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamingDivergenceZeroForCanonicalNames(t *testing.T) {
	assert.Zero(t, NamingDivergence("total"))
	assert.Zero(t, NamingDivergence(""))
}

func TestNamingDivergenceGrowsWithConventionMixing(t *testing.T) {
	clean := NamingDivergence("getuserbyid")
	camel := NamingDivergence("getUserById")
	mixed := NamingDivergence("get_UserByID")

	assert.Zero(t, clean)
	assert.Greater(t, camel, 0.0)
	assert.Greater(t, mixed, camel)
	assert.LessOrEqual(t, mixed, 1.0)
}

func TestNamingDivergenceBounded(t *testing.T) {
	for _, name := range []string{"_", "A_B_C_D_E", "x", "SCREAMING_SNAKE_CASE", "$jquery"} {
		d := NamingDivergence(name)
		assert.GreaterOrEqual(t, d, 0.0, name)
		assert.LessOrEqual(t, d, 1.0, name)
	}
}
