package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain code untouched", "EMP_7_a1b2c3d4e5f6", "EMP_7_a1b2c3d4e5f6"},
		{"surrounding whitespace stripped", "  VIS_3_deadbeef0000  ", "VIS_3_deadbeef0000"},
		{"embedded control characters dropped", "EMP_7_a1b2\x00c3d4\re5f6\n", "EMP_7_a1b2c3d4e5f6"},
		{"whitespace only collapses to empty", " \t\r\n ", ""},
		{"empty stays empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Kind
	}{
		{"employee prefix", "EMP_12_aabbccddeeff", KindEmployee},
		{"visitor prefix", "VIS_4_001122334455", KindVisitor},
		{"lowercase prefix is unknown", "emp_12_aabbccddeeff", KindUnknown},
		{"missing prefix", "12_aabbccddeeff", KindUnknown},
		{"empty", "", KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.in))
		})
	}
}

func TestExpiredAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nil expiry never expires", func(t *testing.T) {
		c := Credential{Status: StatusActive}
		assert.False(t, c.ExpiredAt(now))
		assert.False(t, c.ExpiredAt(now.AddDate(10, 0, 0)))
	})

	t.Run("future expiry is not expired", func(t *testing.T) {
		exp := now.Add(time.Hour)
		c := Credential{Status: StatusActive, ExpiresAt: &exp}
		assert.False(t, c.ExpiredAt(now))
	})

	t.Run("past expiry is expired", func(t *testing.T) {
		exp := now.Add(-time.Minute)
		c := Credential{Status: StatusActive, ExpiresAt: &exp}
		assert.True(t, c.ExpiredAt(now))
	})
}
