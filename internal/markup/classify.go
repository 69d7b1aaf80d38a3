package markup

import (
	"regexp"
	"strings"
)

type Kind int

const (
	KindPlain Kind = iota
	KindHeader
	KindContainer
	KindLineBreak
	KindVideo
	KindImage
	KindCode
	KindAd
	KindAffiliate
	KindTable
	KindQuote
	KindList
	KindChat
	KindChatGroup
	KindLink
)

var kindNames = map[Kind]string{
	KindPlain:     "plain",
	KindHeader:    "header",
	KindContainer: "container",
	KindLineBreak: "linebreak",
	KindVideo:     "video",
	KindImage:     "image",
	KindCode:      "code",
	KindAd:        "ad",
	KindAffiliate: "affiliate",
	KindTable:     "table",
	KindQuote:     "quote",
	KindList:      "list",
	KindChat:      "chat",
	KindChatGroup: "chatgroup",
	KindLink:      "link",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Match is the classification of a single line. Only the fields relevant to
// Kind are set.
type Match struct {
	Kind     Kind
	Level    Level
	Caption  string
	Count    int
	Alt      string
	Src      string
	Language string
	Variant  string
	Label    string
	URL      string
}

var (
	headerRes = [...]*regexp.Regexp{
		regexp.MustCompile(`^#\s(.*)`),
		regexp.MustCompile(`^##\s(.*)`),
		regexp.MustCompile(`^###\s(.*)`),
		regexp.MustCompile(`^####\s(.*)`),
		regexp.MustCompile(`^#####\s(.*)`),
	}
	lineBreakRe   = regexp.MustCompile(`^(\.{2,})$`)
	videoRe       = regexp.MustCompile(`^!\[(.*)\]\((.*\.mp4)\)`)
	imageRe       = regexp.MustCompile(`^!\[(.*)\]\((.*)\)`)
	codeRe        = regexp.MustCompile("^```(.*)")
	codeCloseRe   = regexp.MustCompile("^```$")
	adRe          = regexp.MustCompile(`<ad/?>`)
	affiliateRe   = regexp.MustCompile(`</?affiliate>`)
	tableRe       = regexp.MustCompile(`^\|(.*)\|`)
	quoteRe       = regexp.MustCompile(`^>(.*)`)
	listRe        = regexp.MustCompile(`^(\s*-\s|1\.\s)(.*)`)
	chatRe        = regexp.MustCompile(`^<chat([12])`)
	chatGroupRe   = regexp.MustCompile(`^<chats([12])`)
	chatStripRe   = regexp.MustCompile(`^<chat[12]>`)
	chatsStripRe  = regexp.MustCompile(`^<chats[12]>`)
	linkRe        = regexp.MustCompile(`^\[([^\]]*)\]\(([^)\s]*)\)\s*$`)
	affiliateKVRe = regexp.MustCompile(`^([a-z]+):(.*)`)
)

type matcher func(line string) (Match, bool)

// rules is ordered by priority; the first matching rule wins.
var rules = []matcher{
	matchHeader,
	matchContainer,
	func(line string) (Match, bool) {
		m := lineBreakRe.FindStringSubmatch(line)
		if m == nil {
			return Match{}, false
		}
		return Match{Kind: KindLineBreak, Count: len(m[1])}, true
	},
	mediaMatcher(KindVideo, videoRe),
	mediaMatcher(KindImage, imageRe),
	func(line string) (Match, bool) {
		m := codeRe.FindStringSubmatch(line)
		if m == nil {
			return Match{}, false
		}
		return Match{Kind: KindCode, Language: strings.TrimSpace(m[1])}, true
	},
	containsMatcher(KindAd, adRe),
	containsMatcher(KindAffiliate, affiliateRe),
	containsMatcher(KindTable, tableRe),
	containsMatcher(KindQuote, quoteRe),
	containsMatcher(KindList, listRe),
	variantMatcher(KindChat, chatRe),
	variantMatcher(KindChatGroup, chatGroupRe),
	func(line string) (Match, bool) {
		m := linkRe.FindStringSubmatch(line)
		if m == nil {
			return Match{}, false
		}
		return Match{Kind: KindLink, Label: m[1], URL: m[2]}, true
	},
}

// Classify reports how a single line is handled. It is a pure function of
// the line.
func Classify(line string) Match {
	for _, match := range rules {
		if m, ok := match(line); ok {
			return m
		}
	}
	return Match{Kind: KindPlain}
}

func matchHeader(line string) (Match, bool) {
	for i, re := range headerRes {
		if m := re.FindStringSubmatch(line); m != nil {
			return Match{Kind: KindHeader, Level: Level(i), Caption: m[1]}, true
		}
	}
	return Match{}, false
}

// matchContainer detects a line that opens a div or span without closing it.
func matchContainer(line string) (Match, bool) {
	if opensContainer(line, "<div", "</div>") || opensContainer(line, "<span", "</span>") {
		return Match{Kind: KindContainer}, true
	}
	return Match{}, false
}

func opensContainer(line, open, close string) bool {
	return strings.Contains(line, open) && !strings.Contains(line, close)
}

func closesContainer(line string) bool {
	return strings.Contains(line, "</div>") || strings.Contains(line, "</span>")
}

func mediaMatcher(kind Kind, re *regexp.Regexp) matcher {
	return func(line string) (Match, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return Match{}, false
		}
		return Match{Kind: kind, Alt: m[1], Src: m[2]}, true
	}
}

func containsMatcher(kind Kind, re *regexp.Regexp) matcher {
	return func(line string) (Match, bool) {
		if !re.MatchString(line) {
			return Match{}, false
		}
		return Match{Kind: kind}, true
	}
}

func variantMatcher(kind Kind, re *regexp.Regexp) matcher {
	return func(line string) (Match, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return Match{}, false
		}
		return Match{Kind: kind, Variant: m[1]}, true
	}
}
