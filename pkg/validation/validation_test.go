package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
)

type sample struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Link   string `json:"link" validate:"omitempty,url"`
	Kind   string `json:"kind" validate:"omitempty,oneof=A B"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Rating: 9, Link: "nope", Kind: "C"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be at most 5", details["rating"])
	require.Equal(t, "must be a valid url", details["link"])
	require.Equal(t, "must be one of [A B]", details["kind"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(sample{Rating: 4, Link: "https://example.com/a"}))
}

func TestVarNamesTheField(t *testing.T) {
	err := Var("delivery_url", "not a url", "required,url")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, map[string]string{"delivery_url": "must be a valid url"}, typed.Details())

	require.NoError(t, Var("delivery_url", "https://cdn.example.com/x.zip", "required,url"))
}
