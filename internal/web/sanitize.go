package web

import (
	"github.com/microcosm-cc/bluemonday"

	"mdtree/internal/markup"
)

var ugcPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}()

// sanitizeTree strips unsafe markup from the HTML carried by headers and
// plain nodes. The tree is modified in place.
func sanitizeTree(nodes []markup.Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *markup.Header:
			v.Caption = ugcPolicy.Sanitize(v.Caption)
			sanitizeTree(v.Children)
		case *markup.Plain:
			v.HTML = ugcPolicy.Sanitize(v.HTML)
		}
	}
}
