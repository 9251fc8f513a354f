package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mimetypes"
)

func parseOne(t *testing.T, line string) *mimetypes.Type {
	t.Helper()
	reg, err := Parse(strings.NewReader(line))
	require.NoError(t, err)
	require.Equal(t, 1, reg.Count())
	for typ := range reg.Each() {
		return typ
	}
	return nil
}

func TestParseBasicLine(t *testing.T) {
	typ := parseOne(t, "text/plain @asc,txt :quoted-printable")

	assert.Equal(t, "text/plain", typ.ContentType())
	assert.Equal(t, []string{"asc", "txt"}, typ.Extensions())
	assert.Equal(t, mimetypes.EncodingQuotedPrintable, typ.Encoding())
	assert.True(t, typ.Registered())
	assert.False(t, typ.Obsolete())
}

func TestParseFlags(t *testing.T) {
	unregistered := parseOne(t, "*application/vnd.example @exm")
	assert.False(t, unregistered.Registered())
	assert.False(t, unregistered.Obsolete())

	obsolete := parseOne(t, "!application/x-compress @z =use-instead:application/gzip")
	assert.True(t, obsolete.Obsolete())
	assert.Equal(t, []string{"application/gzip"}, obsolete.UseInstead())

	both := parseOne(t, "*!chemical/x-pdb @pdb")
	assert.False(t, both.Registered())
	assert.True(t, both.Obsolete())
}

func TestParsePlatform(t *testing.T) {
	typ := parseOne(t, "mac:application/mac-binhex40 @hqx :base64")

	assert.Equal(t, "application/mac-binhex40", typ.ContentType())
	assert.Equal(t, "mac", typ.System())
	assert.True(t, typ.Platform("mac-ppc"))
	assert.False(t, typ.Platform("linux-amd64"))
}

func TestParseDocsRunToEndOfLine(t *testing.T) {
	typ := parseOne(t, "text/x-note @note =free form docs with spaces # trailing comment")

	assert.Equal(t, "free form docs with spaces", typ.Docs())
}

func TestParseComments(t *testing.T) {
	input := `
# full-line comment

text/plain @txt # trailing comment
`
	reg, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Count())
}

func TestParseURLExpansion(t *testing.T) {
	typ := parseOne(t, "text/richtext @rtx 'IANA,RFC2046,DRAFT:draft-example,LTSW,[rfc-editor],{docs=https://example.com/doc}")

	assert.Equal(t, []string{
		"https://www.iana.org/assignments/media-types/text/richtext",
		"http://www.rfc-editor.org/rfc/rfc2046.txt",
		"https://datatracker.ietf.org/public/idindex.cgi?command=id_details&filename=draft-example",
		"http://www.ltsw.se/knbase/internet/text.htp",
		"https://www.iana.org/assignments/contact-people.htm#rfc-editor",
		"https://example.com/doc",
	}, typ.URLs())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad content type", "notatype @txt"},
		{"bad encoding", "text/plain :binary"},
		{"unexpected token", "text/plain bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			var perr *ErrParse
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, 1, perr.Line)
		})
	}
}

func TestParseErrorLineNumbers(t *testing.T) {
	input := "text/plain @txt\n\nbroken line here\n"
	_, err := Parse(strings.NewReader(input))
	var perr *ErrParse
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}

func TestLoadIntoExistingRegistry(t *testing.T) {
	reg := mimetypes.NewRegistry()
	require.NoError(t, Load(strings.NewReader("text/plain @txt"), reg))
	require.NoError(t, Load(strings.NewReader("image/png @png"), reg))
	assert.Equal(t, 2, reg.Count())
}

func TestDefaultRegistry(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	assert.Greater(t, reg.Count(), 30)

	// Every call constructs a fresh instance.
	again, err := DefaultRegistry()
	require.NoError(t, err)
	assert.NotSame(t, reg, again)
	assert.Equal(t, reg.Count(), again.Count())

	plain := reg.Lookup("text/plain")
	require.NotEmpty(t, plain)
	assert.Equal(t, "text/plain", plain[0].ContentType())
	assert.Contains(t, plain[0].Extensions(), "txt")

	// text/xml is bundled as an obsolete alias pointing at application/xml.
	xml := reg.TypeFor("citydesk.xml")
	require.NotEmpty(t, xml)
	assert.Equal(t, "application/xml", xml[0].ContentType(), "current type outranks the obsolete alias")
}
