package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKYCStatusCanSubmit(t *testing.T) {
	cases := map[KYCStatus]bool{
		"":              true,
		KYCNotSubmitted: true,
		KYCRejected:     true,
		KYCPending:      false,
		KYCApproved:     false,
	}
	for status, want := range cases {
		assert.Equal(t, want, status.CanSubmit(), "status %q", status)
	}
}
