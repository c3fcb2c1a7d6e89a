package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title  *string  `json:"title" validate:"omitempty,max=5"`
	Rating *float64 `json:"rating" validate:"omitempty,gte=0,lte=9.9"`
	Poster *string  `json:"poster_url" validate:"omitempty,url"`
	Name   string   `json:"name" validate:"required"`
}

func ptr[T any](v T) *T { return &v }

func TestStructPasses(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "x", Title: ptr("short"), Rating: ptr(9.9)}))
}

func TestStructReportsJSONNames(t *testing.T) {
	err := Struct(sample{Title: ptr("too long"), Rating: ptr(10.0), Poster: ptr("nope")})
	require.Error(t, err)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "title must be at most 5 characters", fields["title"])
	assert.Equal(t, "rating must be less than or equal to 9.9", fields["rating"])
	assert.Equal(t, "poster_url must be a valid URL", fields["poster_url"])
	assert.Equal(t, "name is required", fields["name"])
}
