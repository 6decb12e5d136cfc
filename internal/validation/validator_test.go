package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type moneyPayload struct {
	Amount string `binding:"omitempty,decimalgt0"`
	Rate   string `binding:"omitempty,decimal"`
	Date   string `binding:"omitempty,rfc3339"`
}

func TestCustomValidators(t *testing.T) {
	Register()

	cases := []struct {
		name    string
		payload moneyPayload
		wantErr bool
	}{
		{name: "empty payload passes", payload: moneyPayload{}},
		{name: "valid decimal amount", payload: moneyPayload{Amount: "550.00"}},
		{name: "zero refused by decimalgt0", payload: moneyPayload{Amount: "0"}, wantErr: true},
		{name: "negative refused by decimalgt0", payload: moneyPayload{Amount: "-1.50"}, wantErr: true},
		{name: "garbage refused", payload: moneyPayload{Amount: "ten dollars"}, wantErr: true},
		{name: "negative allowed by plain decimal", payload: moneyPayload{Rate: "-0.25"}},
		{name: "garbage rate refused", payload: moneyPayload{Rate: "1,5"}, wantErr: true},
		{name: "rfc3339 date passes", payload: moneyPayload{Date: "2026-08-29T10:00:00Z"}},
		{name: "bare date refused", payload: moneyPayload{Date: "2026-08-29"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tc.payload)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
