package interpreter

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is the ordered representation of an object literal. Key order
// follows the source, so re-serialised JSON reads the way it was written.
type Object = orderedmap.OrderedMap[string, interface{}]

// NewObject creates an empty Object.
func NewObject() *Object {
	return orderedmap.New[string, interface{}]()
}

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 256

// undefined marks a literal `undefined`; it never escapes the parser.
type undefined struct{}

// ParseLiteral parses src as exactly one data literal. Values are returned
// as *Object, []interface{}, string, float64, bool or nil.
func ParseLiteral(src string) (interface{}, error) {
	p := &literalParser{src: src}

	value, err := p.parseValue(0)
	if err != nil {
		return nil, err
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, parseErrorf(p.pos, "unexpected %q after literal", p.peekRune())
	}
	if _, ok := value.(undefined); ok {
		return nil, nil
	}
	return value, nil
}

// parseLiteralAt parses one literal beginning at offset start and returns
// the value together with the offset just past it.
func parseLiteralAt(src string, start int) (interface{}, int, error) {
	p := &literalParser{src: src, pos: start}
	value, err := p.parseValue(0)
	if err != nil {
		return nil, 0, err
	}
	return value, p.pos, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) peekRune() rune {
	if p.pos >= len(p.src) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

// skipSpace advances over whitespace and comments.
func (p *literalParser) skipSpace() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "//"):
			end := strings.IndexByte(p.src[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.src)
			} else {
				p.pos += end + 1
			}
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				return parseErrorf(p.pos, "unterminated comment")
			}
			p.pos += end + 4
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			if isUnicodeSpace(r) {
				p.pos += size
				continue
			}
			return nil
		}
	}
	return nil
}

func (p *literalParser) parseValue(depth int) (interface{}, error) {
	if depth > maxDepth {
		return nil, parseErrorf(p.pos, "literal nested too deeply")
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.pos >= len(p.src) {
		return nil, parseErrorf(p.pos, "unexpected end of input")
	}

	c := p.src[p.pos]
	switch {
	case c == '{':
		return p.parseObject(depth)
	case c == '[':
		return p.parseArray(depth)
	case c == '"' || c == '\'':
		return p.parseString()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.parseNumber()
	case c == '`':
		return nil, parseErrorf(p.pos, "template literals are not data")
	case isIdentStart(p.peekRune()):
		return p.parseKeyword()
	default:
		return nil, parseErrorf(p.pos, "unexpected %q", p.peekRune())
	}
}

func (p *literalParser) parseObject(depth int) (interface{}, error) {
	obj := NewObject()
	p.pos++ // '{'

	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.pos >= len(p.src) {
			return nil, parseErrorf(p.pos, "unterminated object")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return obj, nil
		}

		keyStart := p.pos
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}

		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			if p.pos < len(p.src) && (p.src[p.pos] == '(' || p.src[p.pos] == ',' || p.src[p.pos] == '}') {
				return nil, parseErrorf(keyStart, "property %q is not a data value", key)
			}
			return nil, parseErrorf(p.pos, "expected ':' after property %q", key)
		}
		p.pos++

		value, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		if _, ok := value.(undefined); ok {
			obj.Delete(key)
		} else {
			obj.Set(key, value)
		}

		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.pos >= len(p.src) {
			return nil, parseErrorf(p.pos, "unterminated object")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, parseErrorf(p.pos, "expected ',' or '}' in object, found %q", p.peekRune())
		}
	}
}

func (p *literalParser) parseKey() (string, error) {
	c := p.src[p.pos]
	switch {
	case c == '"' || c == '\'':
		return p.parseString()
	case strings.HasPrefix(p.src[p.pos:], "..."):
		return "", parseErrorf(p.pos, "spread properties are not data")
	case isDigit(c) || c == '.':
		n, err := p.parseNumber()
		if err != nil {
			return "", err
		}
		return formatNumber(n), nil
	case c == '[':
		return "", parseErrorf(p.pos, "computed property names are not data")
	case isIdentStart(p.peekRune()):
		return p.parseIdentifier(), nil
	default:
		return "", parseErrorf(p.pos, "invalid property name %q", p.peekRune())
	}
}

func (p *literalParser) parseArray(depth int) (interface{}, error) {
	items := []interface{}{}
	p.pos++ // '['

	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.pos >= len(p.src) {
			return nil, parseErrorf(p.pos, "unterminated array")
		}
		switch p.src[p.pos] {
		case ']':
			p.pos++
			return items, nil
		case ',':
			// hole
			items = append(items, nil)
			p.pos++
			continue
		}

		value, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		if _, ok := value.(undefined); ok {
			value = nil
		}
		items = append(items, value)

		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.pos >= len(p.src) {
			return nil, parseErrorf(p.pos, "unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return items, nil
		default:
			return nil, parseErrorf(p.pos, "expected ',' or ']' in array, found %q", p.peekRune())
		}
	}
}

func (p *literalParser) parseString() (string, error) {
	quote := p.src[p.pos]
	start := p.pos
	p.pos++

	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", parseErrorf(start, "unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\n' || c == '\r':
			return "", parseErrorf(p.pos, "newline in string")
		case c == '\\':
			if err := p.parseEscape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *literalParser) parseEscape(b *strings.Builder) error {
	escStart := p.pos
	p.pos++ // '\'
	if p.pos >= len(p.src) {
		return parseErrorf(escStart, "unterminated escape")
	}

	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		if p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			return parseErrorf(escStart, "octal escapes are not supported")
		}
		b.WriteByte(0)
	case '\n':
		// line continuation
	case '\r':
		if p.pos < len(p.src) && p.src[p.pos] == '\n' {
			p.pos++
		}
	case 'x':
		v, err := p.readHex(2)
		if err != nil {
			return err
		}
		b.WriteRune(rune(v))
	case 'u':
		r, err := p.readUnicodeEscape()
		if err != nil {
			return err
		}
		b.WriteRune(r)
	default:
		p.pos--
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		b.WriteRune(r)
		p.pos += size
	}
	return nil
}

func (p *literalParser) readUnicodeEscape() (rune, error) {
	if p.pos < len(p.src) && p.src[p.pos] == '{' {
		end := strings.IndexByte(p.src[p.pos:], '}')
		if end < 2 {
			return 0, parseErrorf(p.pos, "invalid unicode escape")
		}
		v, err := strconv.ParseUint(p.src[p.pos+1:p.pos+end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, parseErrorf(p.pos, "invalid unicode escape")
		}
		p.pos += end + 1
		return rune(v), nil
	}

	v, err := p.readHex(4)
	if err != nil {
		return 0, err
	}
	r := rune(v)
	if utf16.IsSurrogate(r) && strings.HasPrefix(p.src[p.pos:], "\\u") {
		save := p.pos
		p.pos += 2
		low, err := p.readHex(4)
		if err == nil {
			if combined := utf16.DecodeRune(r, rune(low)); combined != utf8.RuneError {
				return combined, nil
			}
		}
		p.pos = save
	}
	return r, nil
}

func (p *literalParser) readHex(n int) (uint64, error) {
	if p.pos+n > len(p.src) {
		return 0, parseErrorf(p.pos, "truncated escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil {
		return 0, parseErrorf(p.pos, "invalid hex escape %q", p.src[p.pos:p.pos+n])
	}
	p.pos += n
	return v, nil
}

func (p *literalParser) parseNumber() (float64, error) {
	start := p.pos
	negative := false
	if c := p.src[p.pos]; c == '-' || c == '+' {
		negative = c == '-'
		p.pos++
		if err := p.skipSpace(); err != nil {
			return 0, err
		}
	}

	if strings.HasPrefix(p.src[p.pos:], "0x") || strings.HasPrefix(p.src[p.pos:], "0X") {
		p.pos += 2
		digitsStart := p.pos
		for p.pos < len(p.src) && isHexDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == digitsStart {
			return 0, parseErrorf(start, "invalid hex number")
		}
		v, err := strconv.ParseUint(p.src[digitsStart:p.pos], 16, 64)
		if err != nil {
			return 0, parseErrorf(start, "invalid hex number")
		}
		return applySign(float64(v), negative), nil
	}

	if strings.HasPrefix(p.src[p.pos:], "Infinity") {
		return 0, parseErrorf(start, "non-finite numbers are not representable")
	}

	digitsStart := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	mantissa := p.src[digitsStart:p.pos]
	if mantissa == "" || mantissa == "." {
		return 0, parseErrorf(start, "invalid number")
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		expStart := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == expStart {
			return 0, parseErrorf(start, "invalid exponent")
		}
	}
	if p.pos < len(p.src) && isIdentStart(p.peekRune()) {
		return 0, parseErrorf(p.pos, "identifier directly after number")
	}

	v, err := strconv.ParseFloat(p.src[digitsStart:p.pos], 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, parseErrorf(start, "invalid number %q", p.src[start:p.pos])
	}
	return applySign(v, negative), nil
}

func (p *literalParser) parseIdentifier() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isIdentPart(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func (p *literalParser) parseKeyword() (interface{}, error) {
	start := p.pos
	word := p.parseIdentifier()
	switch word {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	case "undefined":
		return undefined{}, nil
	case "NaN", "Infinity":
		return nil, parseErrorf(start, "non-finite numbers are not representable")
	case "function", "async", "new", "class":
		return nil, parseErrorf(start, "%s expressions are not data", word)
	default:
		return nil, parseErrorf(start, "identifier %q is not a data value", word)
	}
}

func applySign(v float64, negative bool) float64 {
	if negative {
		return -v
	}
	return v
}

// formatNumber renders a number the way it appears as a property name.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r > 0x7f && r != utf8.RuneError && !isUnicodeSpace(r))
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isUnicodeSpace(r rune) bool {
	return r == '\u00a0' || r == '\ufeff' || r == '\u2028' || r == '\u2029'
}
