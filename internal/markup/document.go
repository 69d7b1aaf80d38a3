package markup

import (
	"encoding/json"
	"fmt"
)

type wireNode struct {
	Tag         Tag               `json:"tag"`
	Text        string            `json:"text,omitempty"`
	Expand      bool              `json:"expand,omitempty"`
	ChildExpand bool              `json:"childExpand,omitempty"`
	Children    []wireNode        `json:"children,omitempty"`
	Count       int               `json:"count,omitempty"`
	Src         string            `json:"src,omitempty"`
	Alt         string            `json:"alt,omitempty"`
	URL         string            `json:"url,omitempty"`
	Language    string            `json:"language,omitempty"`
	Links       map[string]string `json:"links,omitempty"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := make([]wireNode, 0, len(d))
	for _, n := range d {
		out = append(out, toWire(n))
	}
	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var in []wireNode
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	doc, err := fromWireList(in)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// DecodeDocument restores a Document from its JSON form.
func DecodeDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func toWire(n Node) wireNode {
	w := wireNode{Tag: n.Tag(), Text: n.Text()}
	switch v := n.(type) {
	case *Header:
		w.Expand = v.Expand
		w.ChildExpand = v.ChildExpand
		for _, child := range v.Children {
			w.Children = append(w.Children, toWire(child))
		}
	case *LineBreak:
		w.Count = v.Count
	case *Image:
		w.Src, w.Alt = v.Src, v.Alt
	case *Video:
		w.Src, w.Alt = v.Src, v.Alt
	case *Link:
		w.URL = v.URL
	case *Code:
		w.Language = v.Language
	case *Ad:
		w.Expand = v.Expand
		w.ChildExpand = v.ChildExpand
	case *Affiliate:
		w.Links = make(map[string]string, len(v.Links))
		for k, val := range v.Links {
			w.Links[string(k)] = val
		}
	}
	return w
}

func fromWireList(in []wireNode) (Document, error) {
	doc := make(Document, 0, len(in))
	for _, w := range in {
		n, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		doc = append(doc, n)
	}
	return doc, nil
}

func fromWire(w wireNode) (Node, error) {
	if level, ok := levelForTag(w.Tag); ok {
		children, err := fromWireList(w.Children)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			children = nil
		}
		return &Header{
			Level:       level,
			Caption:     w.Text,
			Expand:      w.Expand,
			ChildExpand: w.ChildExpand,
			Children:    children,
		}, nil
	}
	switch w.Tag {
	case TagLineBreak:
		return &LineBreak{Count: w.Count}, nil
	case TagPlain:
		return &Plain{HTML: w.Text}, nil
	case TagImage:
		return &Image{Src: w.Src, Alt: w.Alt}, nil
	case TagVideo:
		return &Video{Src: w.Src, Alt: w.Alt}, nil
	case TagLink:
		return &Link{Label: w.Text, URL: w.URL}, nil
	case TagCode:
		return &Code{Language: w.Language, Source: w.Text}, nil
	case TagAd:
		return &Ad{Expand: w.Expand, ChildExpand: w.ChildExpand}, nil
	case TagAffiliate:
		links := make(map[AffiliateKey]string, len(w.Links))
		for k, v := range w.Links {
			key := AffiliateKey(k)
			if !isAffiliateKey(key) {
				return nil, fmt.Errorf("affiliate: unknown link key %q", k)
			}
			links[key] = v
		}
		return &Affiliate{Links: links}, nil
	}
	return nil, fmt.Errorf("unknown node tag %q", w.Tag)
}

// Count returns the number of nodes in the tree, headers included.
func (d Document) Count() int {
	total := 0
	for _, n := range d {
		total++
		if h, ok := n.(*Header); ok {
			total += Document(h.Children).Count()
		}
	}
	return total
}
