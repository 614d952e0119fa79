package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptionsKeepsKeyOrder(t *testing.T) {
	opts, err := NewOptions([]byte(`{"button_icon":"ff ff-view-expanded","button_color":"#4727ff","display":true}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"button_icon", "button_color", "display"}, opts.Keys())
	assert.True(t, opts.Get("display").Bool())

	out, err := json.Marshal(struct {
		Options Options `json:"options"`
	}{opts})
	require.NoError(t, err)
	assert.Equal(t, `{"options":{"button_icon":"ff ff-view-expanded","button_color":"#4727ff","display":true}}`, string(out))
}

func TestNewOptionsRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"icon"`, `42`, `{"a":`} {
		_, err := NewOptions([]byte(raw))
		assert.ErrorIs(t, err, ErrOptionsNotObject, raw)
	}
}

func TestNewOptionsNullIsEmpty(t *testing.T) {
	opts, err := NewOptions([]byte("null"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(opts))
	assert.Empty(t, opts.Keys())
}

func TestOptionsSetAndDelete(t *testing.T) {
	opts, err := NewOptions([]byte(`{"button_icon":"fa-x","display":false}`))
	require.NoError(t, err)

	opts, err = opts.Set("display", []byte("true"))
	require.NoError(t, err)
	opts, err = opts.Set("button.type", []byte(`"default"`))
	require.NoError(t, err)

	assert.True(t, opts.Get("display").Bool())
	assert.Equal(t, "default", opts.Get("button.type").String())
	assert.Equal(t, []string{"button_icon", "display", "button.type"}, opts.Keys())

	opts, err = opts.Delete("button_icon")
	require.NoError(t, err)
	assert.Equal(t, []string{"display", "button.type"}, opts.Keys())

	_, err = opts.Set("display", []byte("{bad"))
	assert.Error(t, err)
}

func TestOptionsScanAndValue(t *testing.T) {
	var opts Options
	require.NoError(t, opts.Scan([]byte(`{"display":true}`)))
	assert.True(t, opts.Get("display").Bool())

	require.NoError(t, opts.Scan(nil))
	v, err := opts.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	assert.Error(t, opts.Scan(12))
}
