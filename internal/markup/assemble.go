package markup

import (
	"log/slog"
	"strings"
)

// InlineRenderer turns a block of markdown text into an HTML fragment.
type InlineRenderer interface {
	RenderInline(text string) string
}

// adLevel is the deepest level an ad is emitted at; deeper markers are
// re-read by the nearest frame at this level.
const adLevel = LevelH3

type outcome int

const (
	// outcomeNode: a node was built; cursor is the last line it consumed.
	outcomeNode outcome = iota
	// outcomeEnd: input is exhausted; level steps back by one.
	outcomeEnd
	// outcomeDefer: the line is a header at or above the current level.
	// cursor is rewound so the same line is re-read one level up.
	outcomeDefer
	// outcomeRelevel: an ad marker below adLevel. cursor is rewound and
	// level is clamped to adLevel.
	outcomeRelevel
)

type step struct {
	outcome outcome
	node    Node
	cursor  int
	level   Level
}

type Assembler struct {
	render InlineRenderer
}

func New(render InlineRenderer) *Assembler {
	return &Assembler{render: render}
}

// Assemble builds the document tree for text. It never fails; lines that
// match no construct become Plain nodes.
func (a *Assembler) Assemble(text string) Document {
	lines := strings.Split(text, "\n")
	doc := Document{}
	for i := 0; i < len(lines); i++ {
		s := a.assemble(lines, i, LevelRoot)
		if s.outcome != outcomeNode {
			continue
		}
		doc = append(doc, s.node)
		i = s.cursor
	}
	if len(doc) > 0 && isEmptyPlain(doc[0]) {
		doc = doc[1:]
	}
	slog.Debug("markup assembled", "lines", len(lines), "roots", len(doc), "nodes", doc.Count())
	return doc
}

func (a *Assembler) assemble(lines []string, cursor int, level Level) step {
	if cursor >= len(lines) {
		return step{outcome: outcomeEnd, cursor: cursor, level: level - 1}
	}
	m := Classify(lines[cursor])
	switch m.Kind {
	case KindHeader:
		return a.assembleHeader(lines, cursor, level, m)
	case KindAd:
		if level > adLevel {
			return step{outcome: outcomeRelevel, cursor: cursor - 1, level: adLevel}
		}
		return step{outcome: outcomeNode, node: &Ad{Expand: true, ChildExpand: true}, cursor: cursor, level: level}
	}
	node, end := a.block(lines, cursor, m)
	return step{outcome: outcomeNode, node: node, cursor: end, level: level}
}

func (a *Assembler) assembleHeader(lines []string, cursor int, level Level, m Match) step {
	depth := m.Level
	if depth <= level {
		return step{outcome: outcomeDefer, cursor: cursor - 1, level: level - 1}
	}

	header := &Header{
		Level:       depth,
		Caption:     substitute(a.render.RenderInline(m.Caption)),
		Expand:      true,
		ChildExpand: true,
	}
	childLevel := depth
	for childLevel >= depth {
		s := a.assemble(lines, cursor+1, childLevel)
		if s.outcome == outcomeNode && !(len(header.Children) == 0 && isEmptyPlain(s.node)) {
			header.Children = append(header.Children, s.node)
		}
		cursor, childLevel = s.cursor, s.level
	}
	if n := len(header.Children); n > 0 && isEmptyPlain(header.Children[n-1]) {
		header.Children = header.Children[:n-1]
	}
	return step{outcome: outcomeNode, node: header, cursor: cursor, level: childLevel}
}

func (a *Assembler) block(lines []string, cursor int, m Match) (Node, int) {
	switch m.Kind {
	case KindContainer:
		html, end := a.collectContainer(lines, cursor)
		return &Plain{HTML: html}, end
	case KindLineBreak:
		return &LineBreak{Count: (m.Count + 1) / 2}, cursor
	case KindVideo:
		return &Video{Src: m.Src, Alt: m.Alt}, cursor
	case KindImage:
		return &Image{Src: m.Src, Alt: m.Alt}, cursor
	case KindCode:
		return codeBlock(lines, cursor, m.Language)
	case KindAffiliate:
		return affiliateBlock(lines, cursor)
	case KindTable:
		html, end := a.collectBlock(lines, cursor, tableRe, blockWrap{}, nil)
		return &Plain{HTML: html}, end
	case KindQuote:
		html, end := a.collectBlock(lines, cursor, quoteRe, blockWrap{}, nil)
		return &Plain{HTML: html}, end
	case KindList:
		html, end := a.collectBlock(lines, cursor, listRe, blockWrap{}, nil)
		return &Plain{HTML: html}, end
	case KindChat:
		html, end := a.collectBlock(lines, cursor, chatRe, chatWrap(false, m.Variant), chatStripRe)
		return &Plain{HTML: html}, end
	case KindChatGroup:
		html, end := a.collectBlock(lines, cursor, chatGroupRe, chatWrap(true, m.Variant), chatsStripRe)
		return &Plain{HTML: html}, end
	case KindLink:
		return &Link{Label: m.Label, URL: m.URL}, cursor
	}
	return &Plain{HTML: substitute(a.render.RenderInline(lines[cursor]))}, cursor
}

// codeBlock captures the fenced body after the opener at start. The closing
// fence is consumed but not part of the text.
func codeBlock(lines []string, start int, language string) (Node, int) {
	var body []string
	end := start
	for i := start + 1; i < len(lines); i++ {
		end = i
		if codeCloseRe.MatchString(lines[i]) {
			break
		}
		body = append(body, lines[i])
	}
	return &Code{Language: language, Source: strings.Join(body, "\n")}, end
}

func affiliateBlock(lines []string, start int) (Node, int) {
	links := make(map[AffiliateKey]string)
	end := start
	for i := start + 1; i < len(lines); i++ {
		end = i
		if affiliateRe.MatchString(lines[i]) {
			break
		}
		m := affiliateKVRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		if key := AffiliateKey(m[1]); isAffiliateKey(key) {
			links[key] = m[2]
		}
	}
	return &Affiliate{Links: links}, end
}
