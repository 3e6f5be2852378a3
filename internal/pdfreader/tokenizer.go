package pdfreader

import "strconv"

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokName
	tokOperator
)

type token struct {
	kind tokenKind
	num  float64
	text string
}

// tokenizer is a minimal scanner for PDF content streams. It understands
// just enough syntax to track numbers, names and operators; strings, hex
// strings and brackets are consumed and discarded.
type tokenizer struct {
	src []byte
	pos int
}

func newTokenizer(src []byte) *tokenizer {
	return &tokenizer{src: src}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (t *tokenizer) next() (token, bool) {
	for t.pos < len(t.src) {
		b := t.src[t.pos]
		switch {
		case isSpace(b):
			t.pos++
		case b == '%':
			t.skipComment()
		case b == '(':
			t.skipString()
		case b == '<':
			t.skipAngle()
		case b == '>':
			t.pos++
			if t.pos < len(t.src) && t.src[t.pos] == '>' {
				t.pos++
			}
		case b == '[' || b == ']' || b == '{' || b == '}':
			t.pos++
		case b == '/':
			return t.readName(), true
		case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
			return t.readNumber(), true
		default:
			return t.readOperator(), true
		}
	}
	return token{}, false
}

func (t *tokenizer) skipComment() {
	for t.pos < len(t.src) && t.src[t.pos] != '\n' {
		t.pos++
	}
}

func (t *tokenizer) skipString() {
	depth := 0
	for ; t.pos < len(t.src); t.pos++ {
		switch t.src[t.pos] {
		case '\\':
			t.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				t.pos++
				return
			}
		}
	}
}

func (t *tokenizer) skipAngle() {
	t.pos++
	if t.pos < len(t.src) && t.src[t.pos] == '<' {
		// Dictionary opener, nothing more to consume.
		t.pos++
		return
	}
	for t.pos < len(t.src) && t.src[t.pos] != '>' {
		t.pos++
	}
	if t.pos < len(t.src) {
		t.pos++
	}
}

func (t *tokenizer) readName() token {
	t.pos++
	start := t.pos
	for t.pos < len(t.src) && !isSpace(t.src[t.pos]) && !isDelim(t.src[t.pos]) {
		t.pos++
	}
	return token{kind: tokName, text: string(t.src[start:t.pos])}
}

func (t *tokenizer) readNumber() token {
	start := t.pos
	t.pos++
	for t.pos < len(t.src) {
		b := t.src[t.pos]
		if b == '.' || (b >= '0' && b <= '9') {
			t.pos++
			continue
		}
		break
	}
	n, _ := strconv.ParseFloat(string(t.src[start:t.pos]), 64)
	return token{kind: tokNumber, num: n}
}

func (t *tokenizer) readOperator() token {
	start := t.pos
	for t.pos < len(t.src) && !isSpace(t.src[t.pos]) && !isDelim(t.src[t.pos]) {
		t.pos++
	}
	return token{kind: tokOperator, text: string(t.src[start:t.pos])}
}

// skipInlineImage advances past the binary payload of a BI..EI inline image.
func (t *tokenizer) skipInlineImage() {
	for t.pos+1 < len(t.src) {
		if t.src[t.pos] == 'E' && t.src[t.pos+1] == 'I' &&
			(t.pos == 0 || isSpace(t.src[t.pos-1])) &&
			(t.pos+2 >= len(t.src) || isSpace(t.src[t.pos+2])) {
			t.pos += 2
			return
		}
		t.pos++
	}
	t.pos = len(t.src)
}
