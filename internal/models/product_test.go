package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Price
		wantErr bool
	}{
		{"number", `19.99`, 19.99, false},
		{"integer", `5`, 5, false},
		{"numeric string", `"19.99"`, 19.99, false},
		{"padded string", `" 7.5 "`, 7.5, false},
		{"empty string", `""`, 0, false},
		{"null", `null`, 0, false},
		{"word", `"cheap"`, 0, true},
		{"bool", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Price
			err := json.Unmarshal([]byte(tt.input), &p)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestProductRequest_Validate(t *testing.T) {
	price := Price(9.5)
	negative := Price(-1)

	valid := ProductRequest{Name: "n", Description: "d", Price: &price, Category: "c"}
	assert.Empty(t, valid.Validate())

	tests := []struct {
		name string
		req  ProductRequest
	}{
		{"blank name", ProductRequest{Name: "  ", Description: "d", Price: &price, Category: "c"}},
		{"blank description", ProductRequest{Name: "n", Description: "", Price: &price, Category: "c"}},
		{"blank category", ProductRequest{Name: "n", Description: "d", Price: &price, Category: " "}},
		{"nil price", ProductRequest{Name: "n", Description: "d", Category: "c"}},
		{"negative price", ProductRequest{Name: "n", Description: "d", Price: &negative, Category: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.req.Validate())
		})
	}
}
