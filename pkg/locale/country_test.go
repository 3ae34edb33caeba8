package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhoneRegions_DefaultFirst(t *testing.T) {
	regions := PhoneRegions()
	assert.Equal(t, DefaultRegion, regions[0])

	regions[0] = "XX"
	assert.Equal(t, DefaultRegion, PhoneRegions()[0])
}

func TestPhoneRegions_AllKnown(t *testing.T) {
	for _, r := range PhoneRegions() {
		_, ok := Countries[r]
		assert.True(t, ok, r)
	}
}
