package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":  "1.01",
		"2.675":  "2.68",
		"10.004": "10",
		"0.125":  "0.13",
	}
	for in, want := range cases {
		got := Round(decimal.RequireFromString(in))
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s rounded to %s", in, got)
	}
}

func TestClampZero(t *testing.T) {
	assert.True(t, ClampZero(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, ClampZero(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(200), decimal.RequireFromString("12.5"))
	assert.True(t, got.Equal(decimal.NewFromInt(25)))
}

func TestParse(t *testing.T) {
	d, err := Parse(" 12.50 ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	d, err = Parse("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = Parse("abc")
	assert.Error(t, err)
}

func TestFieldErrorPath(t *testing.T) {
	err := NewFieldError("items", 2, "rate", ErrNegativeAmount)
	assert.Equal(t, "items[2].rate: negative_amount", err.Error())
	assert.ErrorIs(t, err, ErrNegativeAmount)

	err = NewFieldError("invoice", -1, "discount", ErrNegativeAmount)
	assert.Equal(t, "invoice.discount", err.Path())
}
