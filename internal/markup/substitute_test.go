package markup

import (
	"strings"
	"testing"
)

func TestSubstituteAnchors(t *testing.T) {
	in := `<p>see <a href="https://example.com">site</a> and <a href="/x" target="_self">x</a></p>`
	out := substitute(in)
	want := `<p>see <a href="https://example.com" target="_blank">site</a> and <a href="/x" target="_self">x</a></p>`
	if out != want {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSubstituteCoffeeBreak(t *testing.T) {
	out := substitute("<p>コーヒーブレイク：休憩</p>")
	if strings.Contains(out, "コーヒーブレイク：") {
		t.Fatalf("expected phrase replaced, got %s", out)
	}
	if !strings.HasPrefix(out, "<p><svg") || !strings.HasSuffix(out, "</svg>休憩</p>") {
		t.Fatalf("unexpected icon output %s", out)
	}
}

type anchorRenderer struct{}

func (anchorRenderer) RenderInline(text string) string {
	return `<p><a href="` + strings.TrimSpace(text) + `">link</a></p>`
}

func TestPlainAndHeaderAreSubstituted(t *testing.T) {
	doc := New(anchorRenderer{}).Assemble("# https://a.example\nhttps://b.example")
	h := doc[0].(*Header)
	if !strings.Contains(h.Caption, `target="_blank"`) {
		t.Fatalf("expected header caption substituted, got %s", h.Caption)
	}
	p := h.Children[0].(*Plain)
	if !strings.Contains(p.HTML, `target="_blank"`) {
		t.Fatalf("expected plain substituted, got %s", p.HTML)
	}
}
