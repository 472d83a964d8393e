package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetNotifiesOnChange(t *testing.T) {
	s := NewStore()
	var got []Change
	s.Subscribe(func(c Change) { got = append(got, c) })

	s.Set("flySpeed", 1.0)
	s.Set("flySpeed", 1.0) // unchanged, must not notify again
	s.Set("flySpeed", 2.0)

	require.Len(t, got, 2)
	assert.Equal(t, Change{Path: "flySpeed", Old: nil, New: 1.0}, got[0])
	assert.Equal(t, Change{Path: "flySpeed", Old: 1.0, New: 2.0}, got[1])
	assert.Equal(t, 2.0, s.Get("flySpeed"))
}

func TestStoreGetUnsetPath(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Get("nope"))
}

func TestChangeEncodeDecodeRoundTrip(t *testing.T) {
	c := Change{Path: "showTitles", Old: true, New: false}
	payload, err := EncodeChange(c)
	require.NoError(t, err)

	got, err := DecodeChange(payload)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDecodeChangeMalformed(t *testing.T) {
	_, err := DecodeChange([]byte("not json"))
	assert.Error(t, err)
}
