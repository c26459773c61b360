package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIsDeterministic(t *testing.T) {
	content := []byte("%PDF-1.7 sample certificate body")

	first := Fingerprint(content)
	second := Fingerprint(content)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := Fingerprint([]byte("certificate for alice"))
	b := Fingerprint([]byte("certificate for alicf"))

	assert.NotEqual(t, a, b)
}

func TestFingerprintKnownVector(t *testing.T) {
	// sha256 of the empty input
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Fingerprint(nil))
}
