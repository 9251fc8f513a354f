// Package loader parses the line-oriented type-definition format and feeds
// the resulting records into a registry.
//
// Each non-blank, non-comment line defines one type:
//
//	[*][!][platform:]media/sub [@ext,ext] [:encoding] ['url,url] [=docs] [#comment]
//
// A leading "*" marks the type unregistered, "!" marks it obsolete, and a
// "platform:" prefix restricts it to platforms matching that pattern. URL
// tokens expand to canonical registry/RFC/IETF links.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/mimetypes"
)

// ErrParse indicates a malformed definition line.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrParse struct {
	Line   int
	Text   string
	Reason string
	cause  error
}

func (e *ErrParse) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

func (e *ErrParse) Unwrap() error { return e.cause }

// Load parses definitions from r into an existing registry.
func Load(r io.Reader, reg *mimetypes.Registry) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := parseLine(line, lineNo)
		if err != nil {
			return err
		}
		reg.Add(t)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read definitions: %w", err)
	}
	return nil
}

// Parse parses definitions from r into a fresh registry.
func Parse(r io.Reader, optFns ...mimetypes.RegistryOption) (*mimetypes.Registry, error) {
	reg := mimetypes.NewRegistry(optFns...)
	if err := Load(r, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func parseLine(line string, lineNo int) (*mimetypes.Type, error) {
	head, rest := splitToken(line)

	registered := true
	obsolete := false
	for len(head) > 0 {
		if head[0] == '*' {
			registered = false
			head = head[1:]
			continue
		}
		if head[0] == '!' {
			obsolete = true
			head = head[1:]
			continue
		}
		break
	}

	// A colon before the slash is a platform restriction; media/sub itself
	// never contains one.
	system := ""
	if colon := strings.IndexByte(head, ':'); colon >= 0 {
		slash := strings.IndexByte(head, '/')
		if slash < 0 || colon < slash {
			system = head[:colon]
			head = head[colon+1:]
		}
	}

	t, err := mimetypes.NewType(head)
	if err != nil {
		return nil, &ErrParse{Line: lineNo, Text: line, Reason: "invalid content type", cause: err}
	}
	t.SetRegistered(registered)
	t.SetObsolete(obsolete)
	if system != "" {
		if err := t.SetSystem(system); err != nil {
			return nil, &ErrParse{Line: lineNo, Text: line, Reason: "invalid platform pattern", cause: err}
		}
	}

	for rest != "" {
		var token string
		token, rest = splitToken(rest)
		switch {
		case token == "":
			// skip
		case token[0] == '@':
			t.SetExtensions(strings.Split(token[1:], ",")...)
		case token[0] == ':':
			if err := t.SetEncoding(strings.ToLower(token[1:])); err != nil {
				return nil, &ErrParse{Line: lineNo, Text: line, Reason: "invalid encoding", cause: err}
			}
		case token[0] == '\'':
			t.SetURLs(expandURLs(t, strings.Split(token[1:], ","))...)
		case token[0] == '=':
			// Docs run to the end of the line, minus a trailing comment.
			docs := token[1:]
			if rest != "" {
				docs += " " + rest
			}
			if i := strings.Index(docs, " #"); i >= 0 {
				docs = strings.TrimSpace(docs[:i])
			}
			t.SetDocs(docs)
			rest = ""
		case token[0] == '#':
			rest = ""
		default:
			return nil, &ErrParse{Line: lineNo, Text: line, Reason: fmt.Sprintf("unexpected token %q", token)}
		}
	}
	return t, nil
}

func splitToken(s string) (token, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
