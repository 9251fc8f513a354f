package mimetypes

import (
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplify(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"text/plain", "text/plain", true},
		{"Text/PLAIN", "text/plain", true},
		{"x-chemical/x-pdb", "chemical/pdb", true},
		{"X-Chemical/X-PDB", "chemical/pdb", true},
		{"application/x-msword", "application/msword", true},
		{"application/vnd.ms-excel", "application/vnd.ms-excel", true},
		{"image/svg+xml", "image/svg+xml", true},
		{"application/", "application/", true},
		{"noslash", "", false},
		{"", "", false},
		{"too/many/segments", "", false},
		{"spaced out/plain", "", false},
	}

	for _, tt := range tests {
		got, ok := Simplify(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	for _, input := range []string{
		"text/plain", "X-Appl/X-Sub", "application/vnd.ms-excel", "x-conference/x-cooltalk",
	} {
		once, ok := Simplify(input)
		require.True(t, ok)
		twice, ok := Simplify(once)
		require.True(t, ok)
		assert.Equal(t, once, twice)
	}
}

func TestNewType(t *testing.T) {
	typ, err := NewType("Text/Plain")
	require.NoError(t, err)

	assert.Equal(t, "Text/Plain", typ.ContentType())
	assert.Equal(t, "Text", typ.MediaType())
	assert.Equal(t, "Plain", typ.SubType())
	assert.Equal(t, "text/plain", typ.Simplified())
	assert.Empty(t, typ.Extensions())
	assert.True(t, typ.Registered())
	assert.False(t, typ.Obsolete())
	assert.False(t, typ.Complete())
}

func TestNewTypeInvalid(t *testing.T) {
	for _, input := range []string{"", "noslash", "a/b/c", "with space/plain"} {
		_, err := NewType(input)
		var ict *ErrInvalidContentType
		require.ErrorAs(t, err, &ict, "input %q", input)
		assert.Equal(t, input, ict.ContentType)
	}
}

func TestEncodingDefaults(t *testing.T) {
	text, err := NewType("text/plain")
	require.NoError(t, err)
	assert.Equal(t, EncodingQuotedPrintable, text.Encoding())

	bin, err := NewType("application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, EncodingBase64, bin.Encoding())
}

func TestSetEncoding(t *testing.T) {
	typ, err := NewType("application/json")
	require.NoError(t, err)

	require.NoError(t, typ.SetEncoding(Encoding8Bit))
	assert.Equal(t, Encoding8Bit, typ.Encoding())

	// Sentinels resolve back to the media-type default.
	require.NoError(t, typ.SetEncoding(""))
	assert.Equal(t, EncodingBase64, typ.Encoding())
	require.NoError(t, typ.SetEncoding("default"))
	assert.Equal(t, EncodingBase64, typ.Encoding())

	err = typ.SetEncoding("binary")
	var bad *ErrInvalidEncoding
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "binary", bad.Encoding)
	assert.Equal(t, EncodingBase64, typ.Encoding(), "failed setter must not change state")
}

func TestSetExtensions(t *testing.T) {
	typ, err := NewType("text/plain")
	require.NoError(t, err)

	typ.SetExtensions("TXT", "asc", "txt", "", " text ")
	assert.Equal(t, []string{"txt", "asc", "text"}, typ.Extensions())
	assert.True(t, typ.Complete())

	typ.SetExtensions()
	assert.Empty(t, typ.Extensions())
	assert.False(t, typ.Complete())
}

func TestRegisteredUnofficialOverride(t *testing.T) {
	typ, err := NewType("x-chemical/x-pdb")
	require.NoError(t, err)
	typ.SetRegistered(true)
	assert.False(t, typ.Registered(), "unofficial marker overrides the stored flag")

	mixed, err := NewType("application/X-Custom")
	require.NoError(t, err)
	mixed.SetRegistered(true)
	assert.False(t, mixed.Registered())

	plain, err := NewType("text/plain")
	require.NoError(t, err)
	plain.SetRegistered(false)
	assert.False(t, plain.Registered())
	plain.SetRegistered(true)
	assert.True(t, plain.Registered())
}

func TestSetDocsUseInstead(t *testing.T) {
	typ, err := NewType("application/x-compress")
	require.NoError(t, err)

	typ.SetDocs("deprecated, use-instead:application/gzip instead")
	assert.Equal(t, []string{"application/gzip"}, typ.UseInstead())

	typ.SetDocs("use-instead:application/gzip or use-instead:application/zstd")
	assert.Equal(t, []string{"application/gzip", "application/zstd"}, typ.UseInstead())

	typ.SetDocs("no annotation here")
	assert.Nil(t, typ.UseInstead())
}

func TestPlatform(t *testing.T) {
	typ, err := NewType("application/mac-binhex40")
	require.NoError(t, err)
	assert.False(t, typ.Platform("darwin-arm64"), "no restriction means not platform-specific")

	require.NoError(t, typ.SetSystem("darwin"))
	assert.True(t, typ.Platform("darwin-arm64"))
	assert.False(t, typ.Platform("linux-amd64"))

	require.NoError(t, typ.SetSystem(""))
	assert.False(t, typ.Platform("darwin-arm64"))

	err = typ.SetSystem("([")
	var bad *ErrInvalidSystem
	require.ErrorAs(t, err, &bad)
}

// mustType builds a configured record for ranking tests.
func mustType(t *testing.T, contentType string, configure func(*Type)) *Type {
	t.Helper()
	typ, err := NewType(contentType)
	require.NoError(t, err)
	if configure != nil {
		configure(typ)
	}
	return typ
}

func TestPriorityCompare(t *testing.T) {
	complete := func(typ *Type) { typ.SetExtensions("dat") }

	tests := []struct {
		name   string
		better *Type
		worse  *Type
	}{
		{
			name:   "simplified name first",
			better: mustType(t, "application/json", complete),
			worse:  mustType(t, "application/zip", complete),
		},
		{
			name:   "registered before unregistered",
			better: mustType(t, "audio/mp4", complete),
			worse:  mustType(t, "x-audio/x-mp4", complete),
		},
		{
			name:   "generic before platform-specific",
			better: mustType(t, "text/plain", complete),
			worse: mustType(t, "text/plain", func(typ *Type) {
				complete(typ)
				require.NoError(t, typ.SetSystem("linux"))
			}),
		},
		{
			name:   "complete before incomplete",
			better: mustType(t, "text/plain", complete),
			worse:  mustType(t, "text/plain", nil),
		},
		{
			name:   "current before obsolete",
			better: mustType(t, "text/plain", complete),
			worse: mustType(t, "text/plain", func(typ *Type) {
				complete(typ)
				typ.SetObsolete(true)
			}),
		},
		{
			name: "obsolete with replacement before obsolete without",
			better: mustType(t, "text/plain", func(typ *Type) {
				complete(typ)
				typ.SetObsolete(true)
				typ.SetDocs("use-instead:text/markdown")
			}),
			worse: mustType(t, "text/plain", func(typ *Type) {
				complete(typ)
				typ.SetObsolete(true)
			}),
		},
		{
			name: "replacement lists compare lexicographically",
			better: mustType(t, "text/plain", func(typ *Type) {
				complete(typ)
				typ.SetObsolete(true)
				typ.SetDocs("use-instead:text/html")
			}),
			worse: mustType(t, "text/plain", func(typ *Type) {
				complete(typ)
				typ.SetObsolete(true)
				typ.SetDocs("use-instead:text/markdown")
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, -1, tt.better.PriorityCompare(tt.worse))
			assert.Equal(t, 1, tt.worse.PriorityCompare(tt.better), "antisymmetry")
		})
	}
}

func TestPriorityCompareStacked(t *testing.T) {
	// A record winning on every criterion beats one losing on every one.
	best := mustType(t, "text/plain", func(typ *Type) {
		typ.SetExtensions("txt")
	})
	worst := mustType(t, "x-text/x-plain", func(typ *Type) {
		require.NoError(t, typ.SetSystem("plan9"))
		typ.SetObsolete(true)
	})

	assert.Equal(t, -1, best.PriorityCompare(worst))
	assert.Equal(t, 1, worst.PriorityCompare(best))
	assert.Equal(t, 0, best.PriorityCompare(best))
}

func TestCompare(t *testing.T) {
	a := mustType(t, "text/Plain", nil)
	b := mustType(t, "TEXT/plain", nil)
	c := mustType(t, "text/xml", nil)

	assert.Equal(t, 0, a.Compare(b), "case-insensitive on content type")
	assert.True(t, a.Equal(b))
	assert.Equal(t, -1, a.Compare(c))
	assert.Equal(t, 1, c.Compare(a))
}

func TestEql(t *testing.T) {
	build := func() *Type {
		typ := mustType(t, "text/plain", nil)
		typ.SetExtensions("txt", "asc")
		require.NoError(t, typ.SetEncoding(Encoding8Bit))
		typ.SetDocs("plain text")
		return typ
	}

	a, b := build(), build()
	assert.True(t, a.Eql(b))

	b.SetExtensions("txt")
	assert.False(t, a.Eql(b))
}

func TestTypeJSONRoundTrip(t *testing.T) {
	orig := mustType(t, "Application/X-Custom", func(typ *Type) {
		typ.SetExtensions("cst", "cust")
		require.NoError(t, typ.SetEncoding(Encoding8Bit))
		require.NoError(t, typ.SetSystem("linux"))
		typ.SetObsolete(true)
		typ.SetRegistered(false)
		typ.SetDocs("use-instead:application/custom")
		typ.SetURLs("https://example.com/custom")
	})

	data, err := gojson.Marshal(orig)
	require.NoError(t, err)

	var decoded Type
	require.NoError(t, gojson.Unmarshal(data, &decoded))

	assert.True(t, orig.Eql(&decoded), "round trip must preserve every field")
	assert.Equal(t, orig.Simplified(), decoded.Simplified())
	assert.Equal(t, orig.UseInstead(), decoded.UseInstead())
}

func TestTypeJSONRejectsMalformed(t *testing.T) {
	var decoded Type
	err := gojson.Unmarshal([]byte(`{"content-type":"noslash","encoding":"base64"}`), &decoded)
	var ict *ErrInvalidContentType
	require.ErrorAs(t, err, &ict)

	err = gojson.Unmarshal([]byte(`{"content-type":"a/b","encoding":"bogus"}`), &decoded)
	var bad *ErrInvalidEncoding
	require.ErrorAs(t, err, &bad)
}
