package jasm

import (
	"fmt"
	"strconv"
	"strings"
)

// token is one whitespace separated word of a line. Quoted strings are one
// token with quoted set and escapes resolved.
type token struct {
	text   string
	quoted bool
}

// tokenize splits a line into tokens, dropping a trailing comment started by
// '#' or "//" outside of a string.
func tokenize(line string) ([]token, error) {
	var ret []token
	i := 0
	for i < len(line) {
		switch c := line[i]; {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#' || strings.HasPrefix(line[i:], "//"):
			return ret, nil
		case c == '"':
			end := i + 1
			for ; end < len(line); end++ {
				if line[end] == '\\' {
					end++
				} else if line[end] == '"' {
					break
				}
			}
			if end >= len(line) {
				return nil, fmt.Errorf("unterminated string %s", line[i:])
			}
			s, err := strconv.Unquote(line[i : end+1])
			if err != nil {
				return nil, fmt.Errorf("invalid string %s: %v", line[i:end+1], err)
			}
			ret = append(ret, token{text: s, quoted: true})
			i = end + 1
		default:
			end := i
			for end < len(line) && line[end] != ' ' && line[end] != '\t' && line[end] != '\r' {
				end++
			}
			ret = append(ret, token{text: line[i:end]})
			i = end
		}
	}
	return ret, nil
}

// words returns the text of tokens that must not be quoted.
func words(toks []token) ([]string, error) {
	ret := make([]string, len(toks))
	for i, t := range toks {
		if t.quoted {
			return nil, fmt.Errorf("unexpected string %q", t.text)
		}
		ret[i] = t.text
	}
	return ret, nil
}

// isLabel returns true for "name:" where name is an identifier.
func isLabel(word string) bool {
	if len(word) < 2 || word[len(word)-1] != ':' {
		return false
	}
	return isIdentifier(word[:len(word)-1])
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// parseInt parses a decimal or 0x prefixed hexadecimal integer, optionally
// suffixed with L, which must fit bits.
func parseInt(s string, bits int) (int64, error) {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "L"), "l")
	v, err := strconv.ParseInt(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid %d-bit integer %q", bits, s)
	}
	return v, nil
}
