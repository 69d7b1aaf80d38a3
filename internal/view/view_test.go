package view

import (
	"strings"
	"testing"

	"mdtree/internal/markup"
)

func TestRenderNestsSections(t *testing.T) {
	doc := markup.Document{
		&markup.Header{Level: markup.LevelH1, Caption: "Top", Expand: true, ChildExpand: true, Children: []markup.Node{
			&markup.Plain{HTML: "<p>intro</p>"},
			&markup.Plain{},
			&markup.Header{Level: markup.LevelH2, Caption: "Sub", Children: []markup.Node{
				&markup.LineBreak{Count: 2},
			}},
		}},
	}
	out, err := New(Options{}).HTML("post", doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "<h1>Top</h1>\n<div class=\"section h1\">\n<div><p>intro</p></div>\n<br/>\n<h2>Sub</h2>\n<div class=\"section h2\">\n<br/><br/>\n</div>\n</div>\n"
	if string(out) != want {
		t.Fatalf("unexpected html:\n%s\nwant:\n%s", out, want)
	}
}

func TestRenderMediaUsesAssetPrefix(t *testing.T) {
	r := New(Options{AssetPrefix: "/assets/posts"})
	out, err := r.HTML("2024/trip", markup.Document{
		&markup.Image{Src: "a.png", Alt: `say "hi"`},
		&markup.Video{Src: "https://cdn.example/v.mp4"},
		&markup.Link{Label: "<home>", URL: "https://example.com/?a=1&b=2"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	cases := []string{
		`<img src="/assets/posts/2024/trip/a.png" alt="say &#34;hi&#34;"/>`,
		`<video src="https://cdn.example/v.mp4" muted loop autoplay playsinline></video>`,
		`<a href="https://example.com/?a=1&amp;b=2" target="_blank" rel="noreferrer">&lt;home&gt;</a>`,
	}
	for _, want := range cases {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in:\n%s", want, got)
		}
	}
}

func TestRenderCodeHighlights(t *testing.T) {
	out, err := New(Options{CodeStyle: "github"}).HTML("p", markup.Document{
		&markup.Code{Language: "go", Source: "package main"},
		&markup.Code{Language: "no-such-language", Source: "a < b"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	if strings.Count(got, "<pre") != 2 {
		t.Fatalf("expected two pre blocks, got:\n%s", got)
	}
	if !strings.Contains(got, "package") || !strings.Contains(got, "&lt;") {
		t.Fatalf("expected escaped source in output:\n%s", got)
	}
}

func TestRenderAdAndAffiliate(t *testing.T) {
	doc := markup.Document{
		&markup.Ad{Expand: true},
		&markup.Affiliate{Links: map[markup.AffiliateKey]string{
			markup.AffiliateTitle:  "Tent",
			markup.AffiliateImage:  "https://img.example/t.jpg",
			markup.AffiliateAmazon: "https://amazon.example/t",
		}},
	}
	plain, err := New(Options{}).HTML("p", doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(plain), `<div class="ad"></div>`) {
		t.Fatalf("expected empty ad slot without client:\n%s", plain)
	}
	withAd, err := New(Options{AdClient: "ca-pub-1", AdSlot: "42"}).HTML("p", doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(withAd)
	for _, want := range []string{
		`data-ad-client="ca-pub-1" data-ad-slot="42"`,
		`<div class="title">Tent</div>`,
		`<a class="amazon" href="https://amazon.example/t" target="_blank" rel="noreferrer">Amazonで購入</a>`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "rakuten") || strings.Contains(got, "yahoo") {
		t.Fatalf("expected missing stores skipped:\n%s", got)
	}
}
