package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker([]string{" Example.com ", "corp.net.", ""}, nil)
	assert.Equal(t, []string{"example.com", "corp.net"}, c.Domains())

	tests := []struct {
		from string
		want bool
	}{
		{"alice@example.com", true},
		{"ALICE@EXAMPLE.COM", true},
		{"bob@mail.example.com", true},
		{"Bob Smith <bob@corp.net>", true},
		{"eve@notexample.com", false},
		{"eve@example.com.evil.org", false},
		{"no-at-sign", false},
		{"trailing@", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsWhitelisted(tt.from))
		})
	}
}

func TestEmptyWhitelist(t *testing.T) {
	assert.False(t, NewChecker(nil, nil).IsWhitelisted("a@example.com"))
}
