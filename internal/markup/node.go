package markup

import "strings"

type Tag string

const (
	TagH1        Tag = "h1"
	TagH2        Tag = "h2"
	TagH3        Tag = "h3"
	TagH4        Tag = "h4"
	TagH5        Tag = "h5"
	TagLineBreak Tag = "br"
	TagPlain     Tag = "none"
	TagImage     Tag = "img"
	TagVideo     Tag = "video"
	TagLink      Tag = "link"
	TagCode      Tag = "code"
	TagAd        Tag = "ad"
	TagAffiliate Tag = "affiliate"
)

// Level is the header hierarchy depth. Smaller is shallower.
type Level int

const (
	LevelRoot Level = -1
	LevelH1   Level = 0
	LevelH2   Level = 1
	LevelH3   Level = 2
	LevelH4   Level = 3
	LevelH5   Level = 4
)

var headerTags = [...]Tag{TagH1, TagH2, TagH3, TagH4, TagH5}

func (l Level) Tag() Tag {
	if l < LevelH1 || l > LevelH5 {
		return ""
	}
	return headerTags[l]
}

func levelForTag(tag Tag) (Level, bool) {
	for i, t := range headerTags {
		if t == tag {
			return Level(i), true
		}
	}
	return 0, false
}

// Node is one element of an assembled document. The set of implementations
// is closed; switch on the concrete type to read tag specific fields.
type Node interface {
	Tag() Tag
	Text() string
	node()
}

type Header struct {
	Level       Level
	Caption     string
	Expand      bool
	ChildExpand bool
	Children    []Node
}

func (h *Header) Tag() Tag     { return h.Level.Tag() }
func (h *Header) Text() string { return h.Caption }
func (*Header) node()          {}

type LineBreak struct {
	Count int
}

func (*LineBreak) Tag() Tag       { return TagLineBreak }
func (b *LineBreak) Text() string { return strings.Repeat("<br/>", b.Count) }
func (*LineBreak) node()          {}

type Plain struct {
	HTML string
}

func (*Plain) Tag() Tag       { return TagPlain }
func (p *Plain) Text() string { return p.HTML }
func (*Plain) node()          {}

type Image struct {
	Src string
	Alt string
}

func (*Image) Tag() Tag     { return TagImage }
func (*Image) Text() string { return "" }
func (*Image) node()        {}

type Video struct {
	Src string
	Alt string
}

func (*Video) Tag() Tag     { return TagVideo }
func (*Video) Text() string { return "" }
func (*Video) node()        {}

type Link struct {
	Label string
	URL   string
}

func (*Link) Tag() Tag       { return TagLink }
func (l *Link) Text() string { return l.Label }
func (*Link) node()          {}

type Code struct {
	Language string
	Source   string
}

func (*Code) Tag() Tag       { return TagCode }
func (c *Code) Text() string { return c.Source }
func (*Code) node()          {}

const adText = "google"

type Ad struct {
	Expand      bool
	ChildExpand bool
}

func (*Ad) Tag() Tag     { return TagAd }
func (*Ad) Text() string { return adText }
func (*Ad) node()        {}

type AffiliateKey string

const (
	AffiliateImage   AffiliateKey = "img"
	AffiliateAmazon  AffiliateKey = "amazon"
	AffiliateRakuten AffiliateKey = "rakuten"
	AffiliateYahoo   AffiliateKey = "yahoo"
	AffiliateTitle   AffiliateKey = "title"
)

// AffiliateKeys lists the only keys an Affiliate node may carry, in scan order.
var AffiliateKeys = []AffiliateKey{
	AffiliateImage,
	AffiliateAmazon,
	AffiliateRakuten,
	AffiliateYahoo,
	AffiliateTitle,
}

func isAffiliateKey(key AffiliateKey) bool {
	for _, k := range AffiliateKeys {
		if k == key {
			return true
		}
	}
	return false
}

type Affiliate struct {
	Links map[AffiliateKey]string
}

func (*Affiliate) Tag() Tag     { return TagAffiliate }
func (*Affiliate) Text() string { return "" }
func (*Affiliate) node()        {}

// Document is the ordered sequence of root nodes handed to presentation.
type Document []Node

func isEmptyPlain(n Node) bool {
	p, ok := n.(*Plain)
	return ok && p.HTML == ""
}
