package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMessagesCarryGlyph(t *testing.T) {
	cases := []struct {
		name  string
		fn    func(string) string
		glyph string
	}{
		{"Success", Success, "✓"},
		{"Warn", Warn, "⚠"},
		{"Err", Err, "✗"},
		{"Info", Info, "ℹ"},
		{"Hint", Hint, "→"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := c.fn("scenario dir added")
			assert.Contains(t, out, c.glyph)
			assert.Contains(t, out, "scenario dir added")
		})
	}
}

func TestPlainFormattersKeepText(t *testing.T) {
	for name, fn := range map[string]func(string) string{
		"Addr":      Addr,
		"Val":       Val,
		"Meta":      Meta,
		"ChainName": ChainName,
	} {
		assert.Contains(t, fn("Base"), "Base", name)
	}
}

func TestBadge(t *testing.T) {
	for _, status := range []string{"PASS", "FAIL", "ERROR", "SKIP"} {
		assert.Contains(t, Badge(status), status)
	}
	assert.Contains(t, Badge("PASS"), "PASS ", "labels share one width")
}

func TestTruncateAddr(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"0xb0b":      "0xb0b",
		"0x12345678": "0x12345678",
		"0x2b68764bCfE9fCD8d5a30a281F141f69b69Ae3C8": "0x2b68…e3C8",
	}
	for in, want := range cases {
		assert.Equal(t, want, TruncateAddr(in), in)
	}
}

func TestBanner(t *testing.T) {
	out := Banner("0.4.0")
	assert.Contains(t, out, "quarkcheck")
	assert.Contains(t, out, "0.4.0")
}
