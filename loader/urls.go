package loader

import (
	"regexp"
	"strings"

	"github.com/hupe1980/mimetypes"
)

var (
	rfcRE   = regexp.MustCompile(`^RFC\d+$`)
	namedRE = regexp.MustCompile(`^\{([^=]+)=([^}]+)\}$`)
)

// expandURLs decodes the URL token shorthand used by the definition format
// into canonical links. Unknown tokens pass through unchanged.
func expandURLs(t *mimetypes.Type, tokens []string) []string {
	urls := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		urls = append(urls, expandURL(t, token))
	}
	return urls
}

func expandURL(t *mimetypes.Type, token string) string {
	switch {
	case token == "IANA":
		return "https://www.iana.org/assignments/media-types/" + strings.ToLower(t.ContentType())
	case token == "LTSW":
		return "http://www.ltsw.se/knbase/internet/" + strings.ToLower(t.MediaType()) + ".htp"
	case rfcRE.MatchString(token):
		return "http://www.rfc-editor.org/rfc/" + strings.ToLower(token) + ".txt"
	case strings.HasPrefix(token, "DRAFT:"):
		return "https://datatracker.ietf.org/public/idindex.cgi?command=id_details&filename=" +
			strings.TrimPrefix(token, "DRAFT:")
	case strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]"):
		return "https://www.iana.org/assignments/contact-people.htm#" +
			strings.Trim(token, "[]")
	default:
		if m := namedRE.FindStringSubmatch(token); m != nil {
			return m[2]
		}
		return token
	}
}
