package markup

import (
	"regexp"
	"strings"
)

const emptyLinePlaceholder = "&nbsp;"

type blockWrap struct {
	prefix string
	suffix string
}

func chatWrap(group bool, variant string) blockWrap {
	name := "chat"
	if group {
		name = "chats"
	}
	return blockWrap{
		prefix: "<" + name + "Parent" + variant + "><" + name + variant + ">",
		suffix: "</" + name + variant + "></" + name + "Parent" + variant + ">",
	}
}

// collectBlock gathers the run of lines starting at start that match
// pattern and renders it once. It returns the HTML and the index of the last
// line consumed.
func (a *Assembler) collectBlock(lines []string, start int, pattern *regexp.Regexp, wrap blockWrap, strip *regexp.Regexp) (string, int) {
	clean := func(line string) string {
		if strip == nil {
			return line
		}
		return strip.ReplaceAllString(line, "")
	}

	var b strings.Builder
	b.WriteString(wrap.prefix)
	b.WriteString(clean(lines[start]))
	b.WriteString("\n")
	end := start
	for i := start + 1; i < len(lines) && pattern.MatchString(lines[i]); i++ {
		text := clean(lines[i])
		if text == "" {
			text = emptyLinePlaceholder
		}
		b.WriteString(text)
		b.WriteString("\n")
		end = i
	}
	return a.render.RenderInline(b.String()) + wrap.suffix, end
}

// collectContainer gathers an HTML div/span opened at start through the line
// that closes it, or to the end of input.
func (a *Assembler) collectContainer(lines []string, start int) (string, int) {
	var b strings.Builder
	b.WriteString(lines[start])
	b.WriteString("\n")
	end := start
	for i := start + 1; i < len(lines); i++ {
		b.WriteString(lines[i])
		b.WriteString("\n")
		end = i
		if closesContainer(lines[i]) {
			break
		}
	}
	return a.render.RenderInline(b.String()), end
}
