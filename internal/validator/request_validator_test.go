package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineBody struct {
	VariantID int64  `json:"variant_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"gt=0"`
	Reason    string `json:"reason" validate:"omitempty,oneof=damaged wrong_item"`
	Notes     string `json:"notes" validate:"max=5"`
	Contact   string `json:"contact" validate:"omitempty,email"`
}

type batchBody struct {
	Lines []lineBody `json:"lines" validate:"min=1,dive"`
}

func valid() lineBody {
	return lineBody{VariantID: 1, Quantity: 1}
}

func TestMessage(t *testing.T) {
	v := New()

	cases := []struct {
		name string
		body interface{}
		want string
	}{
		{"required", func() lineBody { b := valid(); b.VariantID = 0; return b }(), "variant_id is required"},
		{"gt", func() lineBody { b := valid(); b.Quantity = 0; return b }(), "quantity must be gt 0"},
		{"oneof", func() lineBody { b := valid(); b.Reason = "bored"; return b }(), "reason must be one of [damaged wrong_item]"},
		{"max", func() lineBody { b := valid(); b.Notes = "too long"; return b }(), "notes must be max 5"},
		{"other tag", func() lineBody { b := valid(); b.Contact = "x"; return b }(), "contact is invalid"},
		{"min", batchBody{}, "lines must be min 1"},
		{"dive", batchBody{Lines: []lineBody{valid(), {Quantity: 1}}}, "lines[1].variant_id is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.body)
			require.Error(t, err)
			assert.Equal(t, tc.want, Message(err))
		})
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, New().Validate(batchBody{Lines: []lineBody{valid()}}))
}

func TestMessage_NotValidationError(t *testing.T) {
	assert.Equal(t, "invalid body", Message(errors.New("x")))
}
