package validation_test

import (
	"errors"
	"testing"

	"github.com/desertthunder/peai/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type part struct {
	Page  int    `json:"page" validate:"min=1,max=9999"`
	Title string `json:"title" validate:"required"`
}

type video struct {
	ID    string `json:"id" validate:"required"`
	Bvid  string `json:"bvid" validate:"required,bvid"`
	Parts []part `json:"parts" validate:"required,min=1,unique=Page,dive"`
}

func TestValidator_Validate(t *testing.T) {
	v := validation.New()

	t.Run("valid struct", func(t *testing.T) {
		err := v.Validate(video{ID: "v1", Bvid: "BV1xx411c7mD", Parts: []part{{Page: 1, Title: "intro"}}})
		assert.NoError(t, err)
	})

	tests := []struct {
		name      string
		in        video
		wantField string
	}{
		{
			name:      "bad bvid",
			in:        video{ID: "v1", Bvid: "'; DROP--", Parts: []part{{Page: 1, Title: "a"}}},
			wantField: "bvid",
		},
		{
			name:      "missing parts",
			in:        video{ID: "v1", Bvid: "BV1xx411c7mD"},
			wantField: "parts",
		},
		{
			name:      "duplicate pages",
			in:        video{ID: "v1", Bvid: "BV1xx411c7mD", Parts: []part{{Page: 1, Title: "a"}, {Page: 1, Title: "b"}}},
			wantField: "parts",
		},
		{
			name:      "page out of range",
			in:        video{ID: "v1", Bvid: "BV1xx411c7mD", Parts: []part{{Page: 0, Title: "a"}}},
			wantField: "parts[0].page",
		},
		{
			name:      "missing part title",
			in:        video{ID: "v1", Bvid: "BV1xx411c7mD", Parts: []part{{Page: 1}}},
			wantField: "parts[0].title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			require.Error(t, err)

			var verr *validation.Error
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.wantField)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("BV1xx411c7mD", "bvid"))
	assert.Error(t, v.Var("BV0000000000", "bvid"))
	assert.Error(t, v.Var("bv1xx411c7mD", "bvid"))
}
