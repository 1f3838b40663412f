package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParam(t *testing.T) {
	assert.Nil(t, BuildParam("high", false))

	p := BuildParam(" HIGH ", true)
	require.NotNil(t, p)
	assert.Equal(t, "high", p.Effort)

	assert.Equal(t, DefaultEffort, BuildParam("", true).Effort)
	assert.Equal(t, DefaultEffort, BuildParam("extreme", true).Effort)
}

func TestValidEffort(t *testing.T) {
	for _, e := range Efforts {
		assert.True(t, ValidEffort(e), e)
	}
	assert.False(t, ValidEffort("none"))
}
