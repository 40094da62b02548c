// Package matlist parses the mat range notation used by facility templates,
// e.g. "1-12,14,20-24H".
package matlist

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultMaxMat is the largest mat number the default parser accepts.
const DefaultMaxMat = 9999

var (
	ErrMalformedToken     = errors.New("malformed token")
	ErrInvalidRange       = errors.New("invalid range")
	ErrConflictingFeature = errors.New("conflicting feature")
)

// Kind tells which grammar rule a token broke.
type Kind int

const (
	Malformed Kind = iota
	InvalidRange
	ConflictingFeature
)

func (k Kind) String() string {
	switch k {
	case InvalidRange:
		return "invalid range"
	case ConflictingFeature:
		return "conflicting feature"
	default:
		return "malformed token"
	}
}

// ParseError reports the first offending token of a mat list.
type ParseError struct {
	Kind  Kind
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.Token)
}

func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case InvalidRange:
		return ErrInvalidRange
	case ConflictingFeature:
		return ErrConflictingFeature
	default:
		return ErrMalformedToken
	}
}

// Mat is one mat number with its optional feature code.
type Mat struct {
	Number  int
	Feature string
}

func (m Mat) String() string {
	return strconv.Itoa(m.Number) + m.Feature
}

// List is an ascending set of unique mats. The zero value is the empty list.
type List struct {
	mats []Mat
}

// Len returns the number of mats.
func (l List) Len() int { return len(l.mats) }

// Mats returns a copy of the mats in ascending order.
func (l List) Mats() []Mat {
	return append([]Mat(nil), l.mats...)
}

// Numbers returns the mat numbers in ascending order.
func (l List) Numbers() []int {
	out := make([]int, len(l.mats))
	for i, m := range l.mats {
		out[i] = m.Number
	}
	return out
}

func (l List) index(n int) (int, bool) {
	i := sort.Search(len(l.mats), func(i int) bool { return l.mats[i].Number >= n })
	return i, i < len(l.mats) && l.mats[i].Number == n
}

// Contains reports whether mat n is in the list.
func (l List) Contains(n int) bool {
	_, ok := l.index(n)
	return ok
}

// Feature returns the feature code of mat n, "" when absent or unannotated.
func (l List) Feature(n int) string {
	if i, ok := l.index(n); ok {
		return l.mats[i].Feature
	}
	return ""
}

// Equal compares numbers and feature codes.
func (l List) Equal(o List) bool {
	if len(l.mats) != len(o.mats) {
		return false
	}
	for i := range l.mats {
		if l.mats[i] != o.mats[i] {
			return false
		}
	}
	return true
}

// IsSubsetOf reports whether every mat number of l is also in o.
// Feature codes are ignored.
func (l List) IsSubsetOf(o List) bool {
	j := 0
	for _, m := range l.mats {
		for j < len(o.mats) && o.mats[j].Number < m.Number {
			j++
		}
		if j == len(o.mats) || o.mats[j].Number != m.Number {
			return false
		}
	}
	return true
}

// String renders the canonical compressed notation: consecutive numbers with
// the same feature collapse into one range.
func (l List) String() string {
	var b strings.Builder
	for i := 0; i < len(l.mats); {
		j := i
		for j+1 < len(l.mats) &&
			l.mats[j+1].Number == l.mats[j].Number+1 &&
			l.mats[j+1].Feature == l.mats[i].Feature {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(l.mats[i].Number))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(l.mats[j].Number))
		}
		b.WriteString(l.mats[i].Feature)
		i = j + 1
	}
	return b.String()
}

// Option configures a Parser.
type Option func(*Parser)

// WithFeatures restricts the accepted feature letters. Letters outside the set
// make the token malformed.
func WithFeatures(letters string) Option {
	return func(p *Parser) {
		p.features = letters
	}
}

// WithMaxMat overrides DefaultMaxMat.
func WithMaxMat(n int) Option {
	return func(p *Parser) {
		p.max = n
	}
}

// Parser turns mat range strings into Lists.
type Parser struct {
	features string
	max      int
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{max: DefaultMaxMat}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse parses text with the default parser.
func Parse(text string) (List, error) {
	return defaultParser.Parse(text)
}

// Valid reports whether text parses with the default parser.
func Valid(text string) bool {
	_, err := Parse(text)
	return err == nil
}

// IsSubset parses both strings and tests sub against all. Any parse failure
// yields false.
func IsSubset(sub, all string) bool {
	a, err := Parse(all)
	if err != nil {
		return false
	}
	s, err := Parse(sub)
	if err != nil {
		return false
	}
	return s.IsSubsetOf(a)
}

func (p *Parser) Parse(text string) (List, error) {
	seen := make(map[int]string)
	for _, tok := range strings.Split(text, ",") {
		if tok == "" {
			continue
		}
		low, high, feature, err := p.token(tok)
		if err != nil {
			return List{}, err
		}
		for n := low; n <= high; n++ {
			prev, ok := seen[n]
			switch {
			case !ok:
				seen[n] = feature
			case feature == "" || prev == feature:
			case prev == "":
				seen[n] = feature
			default:
				return List{}, &ParseError{Kind: ConflictingFeature, Token: tok}
			}
		}
	}

	mats := make([]Mat, 0, len(seen))
	for n, f := range seen {
		mats = append(mats, Mat{Number: n, Feature: f})
	}
	sort.Slice(mats, func(i, j int) bool { return mats[i].Number < mats[j].Number })
	return List{mats: mats}, nil
}

func (p *Parser) token(tok string) (low, high int, feature string, err error) {
	body := tok
	if last := tok[len(tok)-1]; isLetter(last) {
		if p.features != "" && !strings.ContainsRune(p.features, rune(last)) {
			return 0, 0, "", &ParseError{Kind: Malformed, Token: tok}
		}
		feature = string(last)
		body = tok[:len(tok)-1]
	}

	lowText, highText, isRange := strings.Cut(body, "-")
	if !digits(lowText) || (isRange && !digits(highText)) {
		return 0, 0, "", &ParseError{Kind: Malformed, Token: tok}
	}
	if !isRange {
		highText = lowText
	}

	low, errLow := strconv.Atoi(lowText)
	high, errHigh := strconv.Atoi(highText)
	if errLow != nil || errHigh != nil || low > p.max || high > p.max {
		return 0, 0, "", &ParseError{Kind: InvalidRange, Token: tok}
	}
	if low > high {
		return 0, 0, "", &ParseError{Kind: InvalidRange, Token: tok}
	}
	return low, high, feature, nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
