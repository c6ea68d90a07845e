package recognize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractItemURL(t *testing.T) {
	ref, err := Extract("https://www.aliexpress.com/item/1005006123456789.html")
	require.NoError(t, err)
	require.Equal(t, "1005006123456789", ref.ID)
	require.Equal(t, "https://www.aliexpress.com/item/1005006123456789.html", ref.CanonicalURL)
	require.False(t, ref.Shortened)
}

func TestExtractCanonicalizesSubdomains(t *testing.T) {
	for _, raw := range []string{
		"https://aliexpress.com/item/123456.html",
		"https://m.aliexpress.com/item/123456.html",
		"https://es.aliexpress.com/item/123456.html?spm=a2g0o.tm1000&gatewayAdapt=glo2esp",
	} {
		ref, err := Extract(raw)
		require.NoError(t, err, raw)
		require.Equal(t, "123456", ref.ID, raw)
		require.Equal(t, "https://www.aliexpress.com/item/123456.html", ref.CanonicalURL, raw)
	}
}

func TestExtractInsideProse(t *testing.T) {
	ref, err := Extract("check this out https://m.aliexpress.com/item/123456.html nice price")
	require.NoError(t, err)
	require.Equal(t, "123456", ref.ID)
}

func TestExtractFirstValidOccurrence(t *testing.T) {
	text := "https://example.com/item/1 then https://www.aliexpress.com/item/111.html and https://www.aliexpress.com/item/222.html"
	ref, err := Extract(text)
	require.NoError(t, err)
	require.Equal(t, "111", ref.ID)
}

func TestExtractShortenedLinks(t *testing.T) {
	for _, raw := range []string{
		"https://s.click.aliexpress.com/e/_opegQu9rmat",
		"https://a.aliexpress.com/_mrgRqdB",
		"https://www.aliexpress.com/s/abc123",
	} {
		ref, err := Extract(raw)
		require.NoError(t, err, raw)
		require.True(t, ref.Shortened, raw)
		require.NotEmpty(t, ref.CanonicalURL, raw)
	}
}

func TestExtractStripsInvisibleCharacters(t *testing.T) {
	ref, err := Extract("https://www.aliexpress.com/item/123456.html​\uFEFF")
	require.NoError(t, err)
	require.Equal(t, "123456", ref.ID)
}

func TestExtractIdempotentOnCanonicalOutput(t *testing.T) {
	ref, err := Extract("https://m.aliexpress.com/item/987654.html?spm=tracking")
	require.NoError(t, err)

	again, err := Extract(ref.CanonicalURL)
	require.NoError(t, err)
	require.Equal(t, ref.ID, again.ID)
	require.Equal(t, ref.CanonicalURL, again.CanonicalURL)
}

func TestExtractRejects(t *testing.T) {
	cases := map[string]string{
		"no url at all":        "cheap gadgets over here",
		"wrong domain":         "https://www.amazon.com/item/123456.html",
		"lookalike domain":     "https://aliexpress.com.evil.io/item/123456.html",
		"no product path":      "https://www.aliexpress.com/help/contact.html",
		"double encoding":      "https://www.aliexpress.com/item/123%25456.html",
		"overlong url":         "https://www.aliexpress.com/item/123456.html?x=" + strings.Repeat("a", 600),
		"product without id":   "https://www.aliexpress.com/product/widget",
		"wholesale without id": "https://www.aliexpress.com/wholesale/?SearchText=zz",
	}

	for name, text := range cases {
		_, err := Extract(text)
		require.ErrorIs(t, err, ErrNotRecognized, name)
	}
}
