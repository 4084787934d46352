package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: "   ", expected: ""},
		{name: "tabs and newlines only", input: "\t\n\r\n ", expected: ""},
		{name: "lower cases", input: "Senior PYTHON Engineer", expected: "senior python engineer"},
		{name: "collapses runs", input: "go   \t developer\n\n\nremote", expected: "go developer remote"},
		{name: "trims ends", input: "  backend engineer \n", expected: "backend engineer"},
		{name: "unicode whitespace", input: "data  science", expected: "data science"},
		{name: "already normal", input: "already normal", expected: "already normal"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"Python Backend Engineer with 5 years experience",
		"\tMixed\nCASE\r\nand   spacing  ",
		"Ünïcödé  RÉSUMÉ text",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeValue_NonString(t *testing.T) {
	assert.Equal(t, "", NormalizeValue(nil))
	assert.Equal(t, "", NormalizeValue(42))
	assert.Equal(t, "", NormalizeValue([]byte("text")))
	assert.Equal(t, "", NormalizeValue(struct{ Text string }{Text: "x"}))
	assert.Equal(t, "hello world", NormalizeValue("  Hello   World "))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \n\t"))
	assert.False(t, IsBlank(" a "))
}
