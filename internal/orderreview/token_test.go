package orderreview

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfirmationToken(t *testing.T) {
	token, err := newConfirmationToken()
	require.NoError(t, err)
	assert.Len(t, token, confirmationTokenBytes*2)

	other, err := newConfirmationToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestNewReferenceFormat(t *testing.T) {
	reference, err := newReference()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reference, referencePrefix))
	assert.Len(t, reference, len(referencePrefix)+referenceBytes*2)
	assert.Equal(t, strings.ToUpper(reference), reference)
}

func TestNewPublicOrderIDIsSixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		id, err := newPublicOrderID()
		require.NoError(t, err)
		require.Len(t, id, 6)
		n, err := strconv.Atoi(id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}
