package mimetypes

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/hupe1980/mimetypes/codec"
)

// Legal content-transfer-encoding tokens.
const (
	EncodingBase64          = "base64"
	Encoding7Bit            = "7bit"
	Encoding8Bit            = "8bit"
	EncodingQuotedPrintable = "quoted-printable"
)

var (
	// contentTypeRE matches "media/sub". The sub segment may be empty, but
	// the separator and the media segment are mandatory.
	contentTypeRE = regexp.MustCompile(`^([-\w.+]+)/([-\w.+]*)$`)

	useInsteadRE = regexp.MustCompile(`use-instead:([-\w.+]+/[-\w.+]*)`)
)

// Simplify lowercases a "media/sub" string and strips the unofficial-type
// marker ("x-"/"X-") from each segment. It reports false if the input does
// not parse as a content type.
//
// Simplify is idempotent: Simplify(Simplify(x)) == Simplify(x).
func Simplify(contentType string) (string, bool) {
	m := contentTypeRE.FindStringSubmatch(contentType)
	if m == nil {
		return "", false
	}
	return simplifySegment(m[1]) + "/" + simplifySegment(m[2]), true
}

func simplifySegment(segment string) string {
	return strings.TrimPrefix(strings.ToLower(segment), "x-")
}

func unofficial(segment string) bool {
	return len(segment) >= 2 && (segment[0] == 'x' || segment[0] == 'X') && segment[1] == '-'
}

// Type describes one MIME content type: its canonical "media/sub" name, the
// extensions it claims, its transfer encoding, and registration/obsolescence
// metadata. A Type is configured through its setters right after NewType and
// must be treated as immutable once handed to a Registry.
type Type struct {
	contentType string
	mediaType   string
	subType     string
	simplified  string

	extensions []string
	encoding   string
	system     *regexp.Regexp
	obsolete   bool
	registered bool
	useInstead []string
	docs       string
	urls       []string
}

// NewType parses a "media/sub" string into a Type. The raw string is kept
// case-preserved; the simplified form is derived once here. The zero
// configuration is: no extensions, default encoding for the media type,
// no system restriction, current, registered.
func NewType(contentType string) (*Type, error) {
	m := contentTypeRE.FindStringSubmatch(contentType)
	if m == nil {
		return nil, &ErrInvalidContentType{ContentType: contentType}
	}
	t := &Type{
		contentType: contentType,
		mediaType:   m[1],
		subType:     m[2],
		simplified:  simplifySegment(m[1]) + "/" + simplifySegment(m[2]),
		registered:  true,
	}
	t.encoding = t.defaultEncoding()
	return t, nil
}

// ContentType returns the case-preserved "media/sub" string.
func (t *Type) ContentType() string { return t.contentType }

// MediaType returns the raw media segment, case-preserved.
func (t *Type) MediaType() string { return t.mediaType }

// SubType returns the raw sub segment, case-preserved.
func (t *Type) SubType() string { return t.subType }

// Simplified returns the simplified form of the content type, the primary
// grouping key for related records.
func (t *Type) Simplified() string { return t.simplified }

// Extensions returns the extensions in insertion order. The returned slice
// must not be mutated.
func (t *Type) Extensions() []string { return t.extensions }

// SetExtensions replaces the extension set. Inputs are lowercased,
// de-duplicated, and interned; insertion order is preserved for display.
func (t *Type) SetExtensions(extensions ...string) {
	t.extensions = t.extensions[:0]
	seen := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		t.extensions = append(t.extensions, intern(ext))
	}
}

// Encoding returns the content-transfer-encoding token.
func (t *Type) Encoding() string { return t.encoding }

// SetEncoding sets the transfer encoding. The empty string and "default"
// resolve to the media-type default (quoted-printable for text, base64
// otherwise); any token outside the legal four fails.
func (t *Type) SetEncoding(encoding string) error {
	switch encoding {
	case "", "default":
		t.encoding = t.defaultEncoding()
	case EncodingBase64, Encoding7Bit, Encoding8Bit, EncodingQuotedPrintable:
		t.encoding = encoding
	default:
		return &ErrInvalidEncoding{Encoding: encoding}
	}
	return nil
}

func (t *Type) defaultEncoding() string {
	if strings.ToLower(t.mediaType) == "text" {
		return EncodingQuotedPrintable
	}
	return EncodingBase64
}

// System returns the platform-restriction pattern source, or "" when the
// type applies to all platforms.
func (t *Type) System() string {
	if t.system == nil {
		return ""
	}
	return t.system.String()
}

// SetSystem restricts the type to platforms matching the given pattern.
// An empty pattern clears the restriction.
func (t *Type) SetSystem(pattern string) error {
	if pattern == "" {
		t.system = nil
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return &ErrInvalidSystem{Pattern: pattern, cause: err}
	}
	t.system = re
	return nil
}

// Obsolete reports whether the type has been deprecated.
func (t *Type) Obsolete() bool { return t.obsolete }

// SetObsolete marks the type as deprecated.
func (t *Type) SetObsolete(obsolete bool) { t.obsolete = obsolete }

// UseInstead returns the simplified names of replacement types for an
// obsolete record, derived from the docs.
func (t *Type) UseInstead() []string { return t.useInstead }

// Docs returns the free-form documentation string.
func (t *Type) Docs() string { return t.docs }

// SetDocs sets the documentation and re-derives the use-instead list from
// any "use-instead:media/sub" annotations it contains.
func (t *Type) SetDocs(docs string) {
	t.docs = docs
	t.useInstead = nil
	for _, m := range useInsteadRE.FindAllStringSubmatch(docs, -1) {
		t.useInstead = append(t.useInstead, m[1])
	}
}

// URLs returns the decoded documentation URL list.
func (t *Type) URLs() []string { return t.urls }

// SetURLs sets the documentation URL list. Token expansion is the loader's
// concern; the type stores the decoded URLs as pass-through data.
func (t *Type) SetURLs(urls ...string) {
	t.urls = append(t.urls[:0], urls...)
}

// SetRegistered stores the explicit registration flag. Registered still
// reports false for types carrying the unofficial marker.
func (t *Type) SetRegistered(registered bool) { t.registered = registered }

// Registered reports whether the type is IANA-registered. A raw segment
// beginning with the unofficial marker forces false regardless of the
// stored flag.
func (t *Type) Registered() bool {
	if unofficial(t.mediaType) || unofficial(t.subType) {
		return false
	}
	return t.registered
}

// Complete reports whether the type claims at least one extension.
func (t *Type) Complete() bool { return len(t.extensions) > 0 }

// Platform reports whether the type is restricted to a platform pattern
// that matches the given platform identifier. The platform string is always
// explicit; see CurrentPlatform for the conventional value.
func (t *Type) Platform(platform string) bool {
	return t.system != nil && t.system.MatchString(platform)
}

// CurrentPlatform returns the running process's platform identifier in the
// form "os-arch", e.g. "linux-amd64".
func CurrentPlatform() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}

// PriorityCompare ranks two types for "first match is the best match"
// ordering. Precedence, applied in order until a step differs:
//
//  1. simplified name, lexicographically
//  2. registered before unregistered
//  3. generic before platform-specific
//  4. complete (has extensions) before incomplete
//  5. current before obsolete
//  6. among obsolete types, one naming a replacement before one that does
//     not; two replacements compare lexicographically
//
// The result is a total preorder; downstream consumers rely on the exact
// tie-break order.
func (t *Type) PriorityCompare(other *Type) int {
	if c := strings.Compare(t.simplified, other.simplified); c != 0 {
		return c
	}
	if c := preferTrue(t.Registered(), other.Registered()); c != 0 {
		return c
	}
	if c := preferTrue(t.system == nil, other.system == nil); c != 0 {
		return c
	}
	if c := preferTrue(t.Complete(), other.Complete()); c != 0 {
		return c
	}
	if c := preferTrue(!t.obsolete, !other.obsolete); c != 0 {
		return c
	}
	if t.obsolete && other.obsolete {
		if c := preferTrue(len(t.useInstead) > 0, len(other.useInstead) > 0); c != 0 {
			return c
		}
		return compareStrings(t.useInstead, other.useInstead)
	}
	return 0
}

// preferTrue orders a true value before a false one.
func preferTrue(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

func compareStrings(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Compare orders types by simplified name, then case-insensitively by the
// raw content type. This is the generic sort order, distinct from
// PriorityCompare.
func (t *Type) Compare(other *Type) int {
	if c := strings.Compare(t.simplified, other.simplified); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(t.contentType), strings.ToLower(other.contentType))
}

// Equal reports whether Compare considers the two types equal.
func (t *Type) Equal(other *Type) bool { return t.Compare(other) == 0 }

// Eql reports field-for-field value equality. It is the duplicate-detection
// predicate and the round-trip fidelity check.
func (t *Type) Eql(other *Type) bool {
	if t.contentType != other.contentType ||
		t.encoding != other.encoding ||
		t.System() != other.System() ||
		t.obsolete != other.obsolete ||
		t.registered != other.registered ||
		t.docs != other.docs {
		return false
	}
	return equalStrings(t.extensions, other.extensions) &&
		equalStrings(t.useInstead, other.useInstead) &&
		equalStrings(t.urls, other.urls)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// typeJSON is the wire form of a Type. Persisted buckets are self-describing
// lists of these; decoding goes back through NewType so malformed data is
// rejected at the same validation point as user input.
type typeJSON struct {
	ContentType string   `json:"content-type"`
	Extensions  []string `json:"extensions,omitempty"`
	Encoding    string   `json:"encoding"`
	System      string   `json:"system,omitempty"`
	Obsolete    bool     `json:"obsolete,omitempty"`
	Registered  bool     `json:"registered"`
	Docs        string   `json:"docs,omitempty"`
	URLs        []string `json:"urls,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (t *Type) MarshalJSON() ([]byte, error) {
	return codec.Default.Marshal(typeJSON{
		ContentType: t.contentType,
		Extensions:  t.extensions,
		Encoding:    t.encoding,
		System:      t.System(),
		Obsolete:    t.obsolete,
		Registered:  t.registered,
		Docs:        t.docs,
		URLs:        t.urls,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Decoding validates the content
// type, encoding, and system pattern exactly like construction does.
func (t *Type) UnmarshalJSON(data []byte) error {
	var w typeJSON
	if err := codec.Default.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewType(w.ContentType)
	if err != nil {
		return err
	}
	decoded.SetExtensions(w.Extensions...)
	if err := decoded.SetEncoding(w.Encoding); err != nil {
		return err
	}
	if err := decoded.SetSystem(w.System); err != nil {
		return err
	}
	decoded.SetObsolete(w.Obsolete)
	decoded.SetRegistered(w.Registered)
	decoded.SetDocs(w.Docs)
	decoded.SetURLs(w.URLs...)
	*t = *decoded
	return nil
}

// String returns the case-preserved content type.
func (t *Type) String() string { return t.contentType }
