package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":           "hello-world",
		"  Go -- Tips_&_Tricks": "go-tips-tricks",
		"Café 2024":             "café-2024",
		"!!!":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestSanitize_StripsScripts(t *testing.T) {
	out := Sanitize(`<p>hi</p><script>alert(1)</script>`)
	assert.Equal(t, "<p>hi</p>", out)
}

func TestSanitize_KeepsCodeLanguageClass(t *testing.T) {
	out := Sanitize(`<pre><code class="language-go">x := 1</code></pre><p class="evil">p</p>`)
	assert.Contains(t, out, `<code class="language-go">`)
	assert.NotContains(t, out, "evil")

	out = Sanitize(`<code class="language-go onclick">x</code>`)
	assert.NotContains(t, out, "class=")
}

func TestSanitize_ExternalLinksOpenInNewTab(t *testing.T) {
	out := Sanitize(`<a href="https://go.dev">go</a>`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, "nofollow")
	assert.Contains(t, out, "noopener")
}

func TestSanitizeText_StripsAllMarkup(t *testing.T) {
	assert.Equal(t, "short intro", SanitizeText(`<p><b>short</b> intro</p><script>x()</script>`))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("pa55word")
	require.NoError(t, err)
	assert.NotEqual(t, "pa55word", hash)
	assert.True(t, CheckPassword(hash, "pa55word"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestUnique_KeepsFirstOccurrenceOrder(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, Unique([]uint{3, 1, 3, 2, 1}))
}

func TestTokenBlacklist_InMemory(t *testing.T) {
	ctx := context.Background()
	b := NewTokenBlacklist(nil)

	assert.False(t, b.IsRevoked(ctx, "t1"))
	b.Revoke(ctx, "t1", time.Now().Add(time.Minute))
	assert.True(t, b.IsRevoked(ctx, "t1"))

	// already expired tokens are not worth remembering
	b.Revoke(ctx, "t2", time.Now().Add(-time.Minute))
	assert.False(t, b.IsRevoked(ctx, "t2"))
}

func TestCache_NilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	c := NewCache(nil, zap.NewNop())

	c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute)
	_, ok := c.GetBytes(ctx, "k")
	assert.False(t, ok)
	c.InvalidateByPrefix(ctx, "k")

	var nilCache *Cache
	_, ok = nilCache.GetBytes(ctx, "k")
	assert.False(t, ok)
}
