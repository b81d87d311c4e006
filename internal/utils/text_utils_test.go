package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "anything", tp.TruncateText("anything", 0))
	assert.Equal(t, "abc"+truncationMarker, tp.TruncateText("abcdef", 3))

	// "שלום" is two bytes per rune; cutting at 3 must not split the second rune
	got := tp.TruncateText("שלום", 3)
	assert.Equal(t, "ש"+truncationMarker, got)
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "ok", tp.SanitizeUTF8("ok"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
}

func TestExcerpt(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "meet tomorrow at 3", tp.Excerpt("meet\n tomorrow   at 3", 80))
	assert.Equal(t, "abc...", tp.Excerpt(strings.Repeat("abc", 10), 3))
	assert.Equal(t, "פגיש...", tp.Excerpt("פגישה מחר", 4))
}
