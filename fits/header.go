// Package fits parses FITS header blocks and predicts, from a parsed header's
// declared dimensions, where the next header of a multi-extension file begins.
//
// Only the header layer of the format is handled here. Data arrays are never
// decoded; their sizes are derived from the header keywords that describe them.
package fits

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// BlockSize is the minimum addressable unit of a FITS file. Every header
	// and data segment starts on a block boundary.
	BlockSize = 2880

	// CardSize is the width of a single header card.
	CardSize = 80

	// EndKeyword terminates a header.
	EndKeyword = "END"

	keywordSize = 8
)

var (
	// ErrNotImplemented is returned for header layouts this package knows about
	// but does not support, such as ASCII tables or unknown BITPIX codes.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidHeader is returned when header text or a required keyword is malformed.
	ErrInvalidHeader = errors.New("invalid header")
)

// Card is a single keyword record.
// Value is nil for commentary cards and for keywords without a value.
type Card struct {
	Keyword string
	Value   any
	Comment string
}

// Header is an ordered keyword to value mapping parsed from one header.
//
// The format does not permit duplicate value keywords. When a file carries
// them anyway the first occurrence is the one returned by lookups; every card
// remains available through Cards in file order.
type Header struct {
	cards      []Card
	index      map[string]int
	commentary []Card
	raw        string
}

// ParseHeader parses concatenated header blocks into a Header.
// Parsing stops at the END card; text after it is ignored.
func ParseHeader(text string) (*Header, error) {
	h := &Header{
		index: make(map[string]int),
		raw:   text,
	}

	for start := 0; start < len(text); start += CardSize {
		end := min(start+CardSize, len(text))
		card := text[start:end]
		if len(card) < CardSize {
			card += strings.Repeat(" ", CardSize-len(card))
		}

		keyword := strings.TrimRight(card[:keywordSize], " ")
		if keyword == EndKeyword && strings.TrimSpace(card[keywordSize:]) == "" {
			h.raw = text[:end]
			return h, nil
		}

		c, isValue, err := parseCard(card, keyword)
		if err != nil {
			return nil, fmt.Errorf("parse card %d: %w", start/CardSize, err)
		}

		if !isValue {
			if c.Keyword != "" || c.Comment != "" {
				h.commentary = append(h.commentary, c)
			}
			continue
		}

		if _, exists := h.index[c.Keyword]; !exists {
			h.index[c.Keyword] = len(h.cards)
		}
		h.cards = append(h.cards, c)
	}

	return h, nil
}

func parseCard(card, keyword string) (Card, bool, error) {
	switch {
	case keyword == "HIERARCH":
		return parseHierarch(card)
	case keyword == "COMMENT" || keyword == "HISTORY" || keyword == "":
		return Card{Keyword: keyword, Comment: strings.TrimRight(card[keywordSize:], " ")}, false, nil
	case card[keywordSize:keywordSize+2] != "= ":
		return Card{Keyword: keyword, Comment: strings.TrimRight(card[keywordSize:], " ")}, false, nil
	}

	value, comment, err := parseValue(card[keywordSize+2:])
	if err != nil {
		return Card{}, false, fmt.Errorf("%s: %w", keyword, err)
	}
	return Card{Keyword: keyword, Value: value, Comment: comment}, true, nil
}

// parseHierarch handles the ESO HIERARCH convention, where the keyword spans
// the card up to the value indicator.
func parseHierarch(card string) (Card, bool, error) {
	rest := card[keywordSize:]
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return Card{Keyword: "HIERARCH", Comment: strings.TrimSpace(rest)}, false, nil
	}

	keyword := strings.Join(strings.Fields(rest[:eq]), " ")
	value, comment, err := parseValue(rest[eq+1:])
	if err != nil {
		return Card{}, false, fmt.Errorf("HIERARCH %s: %w", keyword, err)
	}
	return Card{Keyword: keyword, Value: value, Comment: comment}, true, nil
}

func parseValue(field string) (any, string, error) {
	trimmed := strings.TrimLeft(field, " ")
	if strings.HasPrefix(trimmed, "'") {
		return parseString(trimmed)
	}

	valuePart, comment, _ := strings.Cut(trimmed, "/")
	valuePart = strings.TrimSpace(valuePart)
	comment = strings.TrimSpace(comment)

	switch {
	case valuePart == "":
		return nil, comment, nil
	case valuePart == "T":
		return true, comment, nil
	case valuePart == "F":
		return false, comment, nil
	case strings.HasPrefix(valuePart, "("):
		v, err := parseComplex(valuePart)
		return v, comment, err
	}

	if i, err := strconv.ParseInt(valuePart, 10, 64); err == nil {
		return i, comment, nil
	}

	f, err := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(valuePart), 64)
	if err != nil {
		return nil, "", fmt.Errorf("unparseable value %q: %w", valuePart, ErrInvalidHeader)
	}
	return f, comment, nil
}

// parseString reads a quoted string value. A doubled quote is a literal quote;
// trailing blanks inside the quotes are not significant.
func parseString(field string) (any, string, error) {
	var sb strings.Builder
	i := 1
	for {
		if i >= len(field) {
			return nil, "", fmt.Errorf("unterminated string: %w", ErrInvalidHeader)
		}
		if field[i] == '\'' {
			if i+1 < len(field) && field[i+1] == '\'' {
				sb.WriteByte('\'')
				i += 2
				continue
			}
			break
		}
		sb.WriteByte(field[i])
		i++
	}

	_, comment, _ := strings.Cut(field[i+1:], "/")
	return strings.TrimRight(sb.String(), " "), strings.TrimSpace(comment), nil
}

func parseComplex(v string) (any, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(v, "("), ")")
	re, im, ok := strings.Cut(inner, ",")
	if !ok {
		return nil, fmt.Errorf("malformed complex value %q: %w", v, ErrInvalidHeader)
	}

	r, err := strconv.ParseFloat(strings.TrimSpace(re), 64)
	if err != nil {
		return nil, fmt.Errorf("malformed complex value %q: %w", v, ErrInvalidHeader)
	}
	i, err := strconv.ParseFloat(strings.TrimSpace(im), 64)
	if err != nil {
		return nil, fmt.Errorf("malformed complex value %q: %w", v, ErrInvalidHeader)
	}
	return complex(r, i), nil
}

// HasEndCard reports whether block contains the END card on a card boundary.
func HasEndCard(block []byte) bool {
	for start := 0; start+len(EndKeyword) <= len(block); start += CardSize {
		end := min(start+CardSize, len(block))
		card := block[start:end]
		if !bytes.HasPrefix(card, []byte(EndKeyword)) {
			continue
		}
		if len(bytes.TrimRight(card[len(EndKeyword):], " ")) == 0 {
			return true
		}
	}
	return false
}

// Get returns the value stored under keyword.
func (h *Header) Get(keyword string) (any, bool) {
	i, ok := h.index[keyword]
	if !ok {
		return nil, false
	}
	return h.cards[i].Value, true
}

// Has reports whether keyword is present.
func (h *Header) Has(keyword string) bool {
	_, ok := h.index[keyword]
	return ok
}

// Bool returns a logical value. ok is false if the keyword is missing or not logical.
func (h *Header) Bool(keyword string) (value, ok bool) {
	v, found := h.Get(keyword)
	if !found {
		return false, false
	}
	value, ok = v.(bool)
	return value, ok
}

// String returns a string value. ok is false if the keyword is missing or not a string.
func (h *Header) String(keyword string) (string, bool) {
	v, found := h.Get(keyword)
	if !found {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns an integer value or an ErrInvalidHeader error naming the keyword.
func (h *Header) Int(keyword string) (int64, error) {
	v, found := h.Get(keyword)
	if !found {
		return 0, fmt.Errorf("missing keyword %s: %w", keyword, ErrInvalidHeader)
	}
	i, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("keyword %s is not an integer: %w", keyword, ErrInvalidHeader)
	}
	return i, nil
}

// IntOr returns an integer value, or def when the keyword is absent.
func (h *Header) IntOr(keyword string, def int64) (int64, error) {
	if !h.Has(keyword) {
		return def, nil
	}
	return h.Int(keyword)
}

// Keys returns the value keywords in file order, without duplicates.
func (h *Header) Keys() []string {
	keys := make([]string, 0, len(h.index))
	for i, c := range h.cards {
		if h.index[c.Keyword] == i {
			keys = append(keys, c.Keyword)
		}
	}
	return keys
}

// Cards returns every value card in file order.
func (h *Header) Cards() []Card {
	return append([]Card(nil), h.cards...)
}

// Commentary returns COMMENT, HISTORY and blank-keyword cards in file order.
func (h *Header) Commentary() []Card {
	return append([]Card(nil), h.commentary...)
}

// Len returns the number of distinct value keywords.
func (h *Header) Len() int {
	return len(h.index)
}

// Raw returns the header text up to and including the END card.
func (h *Header) Raw() string {
	return h.raw
}

// MarshalJSON encodes the header as a JSON object preserving keyword order.
// Complex values are encoded as a two element array.
func (h *Header) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range h.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		value, _ := h.Get(key)
		if c, ok := value.(complex128); ok {
			value = [2]float64{real(c), imag(c)}
		}
		v, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
