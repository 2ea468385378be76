package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPv4(t *testing.T) {
	valid := map[string]string{
		"192.168.1.10":     "192.168.1.10",
		"  10.0.0.1\t":     "10.0.0.1",
		"0.0.0.0":          "0.0.0.0",
		"255.255.255.255":  "255.255.255.255",
		" 172.16.254.1   ": "172.16.254.1",
	}
	for in, want := range valid {
		got, err := ParseIPv4(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	invalid := []string{
		"",
		"   ",
		"abc",
		"1.2.3",
		"1.2.3.4.5",
		"300.1.1.1",
		"256.0.0.1",
		"1.2.3.-4",
		"01.2.3.4",
		"::1",
		"::ffff:192.168.1.1",
		"fe80::1%eth0",
		"192.168.1.1%eth0",
		"192.168.1.1/24",
		"192.168.1.1:80",
		"0x7f.0.0.1",
	}
	for _, in := range invalid {
		_, err := ParseIPv4(in)
		assert.ErrorIs(t, err, ErrInvalidIPv4, "%q should be rejected", in)
	}
}
