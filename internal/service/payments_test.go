package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoldPackPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int64
		wantErr bool
	}{
		{name: "valid", payload: GoldPackPayload(250), want: 250},
		{name: "energy payload", payload: "ENERGY_RECHARGE", wantErr: true},
		{name: "not a number", payload: "GOLD_PACK:lots", wantErr: true},
		{name: "zero", payload: "GOLD_PACK:0", wantErr: true},
		{name: "negative", payload: "GOLD_PACK:-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGoldPackPayload(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStarsFor(t *testing.T) {
	s := &PaymentService{cfg: PaymentConfig{GoldPerStar: 10}}

	assert.Equal(t, 1, s.StarsFor(1))
	assert.Equal(t, 1, s.StarsFor(10))
	assert.Equal(t, 2, s.StarsFor(11))
	assert.Equal(t, 100, s.StarsFor(1000))
}

func TestCreateGoldInvoiceLink_RejectsNonPositive(t *testing.T) {
	s := &PaymentService{cfg: PaymentConfig{GoldPerStar: 1}}

	_, err := s.CreateGoldInvoiceLink(0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
