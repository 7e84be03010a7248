package multierror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	m := New[string]()
	m.Add("b", errors.New("error2"))
	m.Add("a", errors.New("error1"))

	assert.Equal(t, "b: error2; a: error1", m.Error())
}

func TestError_Combined(t *testing.T) {
	m := New[int]()
	require.Nil(t, m.Combined())

	m.Add(1, nil)
	require.Nil(t, m.Combined())

	m.Add(1, assert.AnError)
	require.NotNil(t, m.Combined())
	require.ErrorIs(t, m.Combined(), assert.AnError)
}

func TestError_Get(t *testing.T) {
	m := New[int]()
	m.Add(7, assert.AnError)

	err, ok := m.Get(7)
	require.True(t, ok)
	require.ErrorIs(t, err, assert.AnError)

	_, ok = m.Get(8)
	require.False(t, ok)
}
