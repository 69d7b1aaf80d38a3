package markup

import (
	"regexp"
	"strings"
)

const coffeeBreakPhrase = "コーヒーブレイク："

const coffeeIcon = `<svg aria-hidden="true" focusable="false" data-prefix="fas" data-icon="coffee" role="img" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 640 512" class="svg-inline--fa fa-coffee fa-w-20"><path fill="currentColor" d="M192 384h192c53 0 96-43 96-96h32c70.6 0 128-57.4 128-128S582.6 32 512 32H120c-13.3 0-24 10.7-24 24v232c0 53 43 96 96 96zM512 96c35.3 0 64 28.7 64 64s-28.7 64-64 64h-32V96h32zm47.7 384H48.3c-47.6 0-61-64-36-64h583.3c25 0 11.8 64-35.9 64z" class=""></path></svg>`

var anchorOpenRe = regexp.MustCompile(`<a\s([^>]*)>`)

// substitute applies the fixed text replacements to rendered HTML.
func substitute(html string) string {
	html = strings.ReplaceAll(html, coffeeBreakPhrase, coffeeIcon)
	return anchorOpenRe.ReplaceAllStringFunc(html, func(tag string) string {
		if strings.Contains(tag, "target=") {
			return tag
		}
		attrs := anchorOpenRe.FindStringSubmatch(tag)[1]
		return `<a ` + strings.TrimSpace(attrs) + ` target="_blank">`
	})
}
