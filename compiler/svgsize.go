package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	rootTagPattern = regexp.MustCompile(`(?s)<svg\b[^>]*>`)
	widthPattern   = regexp.MustCompile(`(\s)width=("[^"]*"|'[^']*')`)
	heightPattern  = regexp.MustCompile(`(\s)height=("[^"]*"|'[^']*')`)
)

// rewriteRootSize sets the root element's width and height to the given
// values in pt, adding the attributes when they are missing.
func rewriteRootSize(markup string, wPt, hPt float64) (string, error) {
	loc := rootTagPattern.FindStringIndex(markup)
	if loc == nil {
		return "", fmt.Errorf("svg: 找不到根元素")
	}
	tag := markup[loc[0]:loc[1]]
	tag = setAttr(tag, widthPattern, "width", formatPt(wPt))
	tag = setAttr(tag, heightPattern, "height", formatPt(hPt))
	return markup[:loc[0]] + tag + markup[loc[1]:], nil
}

func setAttr(tag string, pattern *regexp.Regexp, name, value string) string {
	if pattern.MatchString(tag) {
		return pattern.ReplaceAllString(tag, `${1}`+name+`="`+value+`"`)
	}
	return strings.Replace(tag, "<svg", `<svg `+name+`="`+value+`"`, 1)
}

func formatPt(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64) + "pt"
}
