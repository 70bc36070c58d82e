package speech

import (
	"strings"
	"unicode"
)

var mathSymbols = map[rune]string{
	'+': "plus",
	'-': "minus",
	'=': "equals",
	'<': "is less than",
	'>': "is greater than",
	'*': "times",
	'/': "divided by",
	'%': "percent",
	'×': "times",
	'÷': "divided by",
}

var mathCommands = map[string]string{
	"times":  "times",
	"cdot":   "times",
	"div":    "divided by",
	"pm":     "plus or minus",
	"le":     "is less than or equal to",
	"leq":    "is less than or equal to",
	"ge":     "is greater than or equal to",
	"geq":    "is greater than or equal to",
	"ne":     "is not equal to",
	"neq":    "is not equal to",
	"approx": "is approximately",
	"pi":     "pi",
	"circ":   "degrees",
	"infty":  "infinity",
	"%":      "percent",
}

// SpeakableText turns display text with light markdown and dollar-delimited math into words a
// synthesizer reads naturally. Every call parses with its own state.
func SpeakableText(s string) string {
	p := &textParser{src: []rune(s), out: &strings.Builder{}}
	p.text()
	return strings.Join(strings.Fields(p.out.String()), " ")
}

type textParser struct {
	src []rune
	pos int
	out *strings.Builder
}

func (p *textParser) done() bool {
	return p.pos >= len(p.src)
}

func (p *textParser) peek() rune {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *textParser) next() rune {
	r := p.peek()
	p.pos++
	return r
}

func (p *textParser) skip(r rune) {
	for !p.done() && p.peek() == r {
		p.pos++
	}
}

func (p *textParser) word(w string) {
	p.out.WriteString(" " + w + " ")
}

func (p *textParser) text() {
	for !p.done() {
		r := p.next()
		switch r {
		case '$':
			p.skip('$')
			p.math(func(r rune) bool { return r == '$' })
			p.skip('$')
		case '*', '`', '#', '~':
		case '_':
			n := 1
			for p.peek() == '_' {
				p.pos++
				n++
			}
			if n >= 3 {
				p.out.WriteString(" blank")
			}
		case '[':
			p.link()
		case '\\':
			if !p.done() {
				p.out.WriteRune(p.next())
			}
		default:
			p.out.WriteRune(r)
		}
	}
}

// link keeps the text of [text](url) and drops the target.
func (p *textParser) link() {
	rest := p.src[p.pos:]
	closeText := indexRune(rest, ']')
	if closeText < 0 || closeText+1 >= len(rest) || rest[closeText+1] != '(' {
		p.out.WriteRune('[')
		return
	}
	closeURL := indexRune(rest[closeText+1:], ')')
	if closeURL < 0 {
		p.out.WriteRune('[')
		return
	}
	p.out.WriteString(SpeakableText(string(rest[:closeText])))
	p.pos += closeText + 1 + closeURL + 1
}

func (p *textParser) math(stop func(rune) bool) {
	for !p.done() && !stop(p.peek()) {
		r := p.next()
		switch r {
		case '\\':
			p.command()
		case '^':
			p.power()
		case '{':
			p.math(closeBrace)
			p.skip('}')
		case '}':
		default:
			if w, ok := mathSymbols[r]; ok {
				p.word(w)
			} else {
				p.out.WriteRune(r)
			}
		}
	}
}

func (p *textParser) command() {
	start := p.pos
	for !p.done() && unicode.IsLetter(p.peek()) {
		p.pos++
	}
	name := string(p.src[start:p.pos])
	if name == "" && !p.done() {
		name = string(p.next())
	}
	switch name {
	case "frac", "dfrac", "tfrac":
		p.group()
		p.word("over")
		p.group()
	case "sqrt":
		p.word("the square root of")
		p.group()
	case "text", "textbf", "mathrm", "mathbf":
		p.group()
	default:
		if w, ok := mathCommands[name]; ok {
			p.word(w)
		}
	}
}

// group reads one argument: a braced group or a single character.
func (p *textParser) group() {
	for p.peek() == ' ' {
		p.pos++
	}
	if p.done() {
		return
	}
	if p.peek() == '{' {
		p.pos++
		p.math(closeBrace)
		p.skip('}')
		return
	}
	r := p.next()
	if w, ok := mathSymbols[r]; ok {
		p.word(w)
		return
	}
	p.out.WriteRune(r)
}

func (p *textParser) power() {
	saved := p.out
	p.out = &strings.Builder{}
	p.group()
	exp := strings.Join(strings.Fields(p.out.String()), " ")
	p.out = saved

	switch exp {
	case "2":
		p.word("squared")
	case "3":
		p.word("cubed")
	case "":
	default:
		p.word("to the power of " + exp)
	}
}

func closeBrace(r rune) bool {
	return r == '}'
}

func indexRune(rs []rune, r rune) int {
	for i, c := range rs {
		if c == r {
			return i
		}
	}
	return -1
}
