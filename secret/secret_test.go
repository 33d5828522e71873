package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	v, err := Static("fixed").Secret("anything")
	require.NoError(t, err)
	assert.Equal(t, []byte("fixed"), v)

	_, err = Static("").Secret("anything")
	assert.Error(t, err)
}
