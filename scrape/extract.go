package scrape

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"gesagent/dataset"
)

// Docket-number fragments that mark a link text or token as a case
// citation, e.g. "BGH, 12.06.2025 - III ZR 109/24".
var docketMarkers = []string{"ZR", "ZB", "StR", "BvR", "C-", "AZ", "Az."}

// Ordered most-specific first so that e.g. "OLG" is not claimed by the
// shorter "LG".
var courtKeywords = []string{
	"BVerfG", "BGH", "BAG", "BSG", "BFH", "EuGH", "EGMR",
	"OVG", "VGH", "OLG", "VG", "LG", "AG",
}

func looksLikeCaseCitation(text string) bool {
	if strings.Contains(text, " - ") {
		return true
	}
	for _, marker := range docketMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// caseLinks collects the decision links on an index or court page.
func caseLinks(root *html.Node) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, a := range findAll(root, "a") {
		href := attr(a, "href")
		if !strings.HasPrefix(href, "/dienste/vernetzung/rechtsprechung") {
			continue
		}
		if !looksLikeCaseCitation(nodeText(a)) {
			continue
		}
		if !seen[href] {
			seen[href] = true
			paths = append(paths, href)
		}
	}
	return paths
}

// shortURL finds the canonical short link of a case page, e.g. "/2025,17804".
func shortURL(root *html.Node) string {
	for _, a := range findAll(root, "a") {
		href := attr(a, "href")
		if !strings.HasPrefix(href, "/") || !strings.Contains(href, ",") {
			continue
		}
		prefix := href
		if len(prefix) > 6 {
			prefix = prefix[:6]
		}
		if strings.ContainsAny(prefix, "0123456789") {
			return href
		}
	}
	return ""
}

var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
}

// extractDate finds the first parseable date token in a header string
// and returns it in ISO form.
func extractDate(header string) string {
	for _, token := range strings.Fields(header) {
		token = strings.Trim(token, ";,.()[]")
		for _, layout := range dateLayouts {
			dt, err := time.Parse(layout, token)
			if err != nil {
				continue
			}
			if dt.Year() >= 1900 && dt.Year() <= 2100 {
				return dt.Format("2006-01-02")
			}
		}
	}
	return ""
}

// extractFileNumber finds a docket like "III ZR 109/24": either a
// self-contained token ("C-123/21") or a register marker followed by
// the running number, with the senate numeral prepended when present.
func extractFileNumber(text string) string {
	tokens := strings.Fields(text)
	for i, token := range tokens {
		trimmed := strings.Trim(token, ";,.()[]")
		if strings.ContainsAny(trimmed, "/-") {
			for _, marker := range docketMarkers {
				if strings.Contains(trimmed, marker) {
					return trimmed
				}
			}
		}
		if isRegisterMarker(trimmed) && i+1 < len(tokens) {
			number := strings.Trim(tokens[i+1], ";,.()[]")
			if strings.Contains(number, "/") {
				docket := trimmed + " " + number
				if i > 0 && isSenateNumeral(tokens[i-1]) {
					docket = tokens[i-1] + " " + docket
				}
				return docket
			}
		}
	}
	return ""
}

func isRegisterMarker(token string) bool {
	switch token {
	case "ZR", "ZB", "StR", "BvR":
		return true
	}
	return false
}

// isSenateNumeral matches the senate part of a docket, a Roman numeral
// or a plain digit.
func isSenateNumeral(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !strings.ContainsRune("IVXL0123456789", r) {
			return false
		}
	}
	return true
}

// extractCourt prefers the last breadcrumb anchor, then falls back to
// the first court keyword appearing in the header text.
func extractCourt(root *html.Node, header string) string {
	var crumbs []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && (hasClass(n, "breadcrumb") || (n.Data == "nav" && hasClass(n, "breadcrumb"))) {
			crumbs = append(crumbs, findAll(n, "a")...)
		}
		return true
	})
	if len(crumbs) > 0 {
		if court := nodeText(crumbs[len(crumbs)-1]); court != "" {
			return court
		}
	}
	for _, kw := range courtKeywords {
		if strings.Contains(header, kw) {
			return kw
		}
	}
	return ""
}

// headerText joins the prominent header blocks of a case page, the
// material the date/court/docket heuristics run over.
func headerText(root *html.Node) string {
	var parts []string
	count := 0
	walk(root, func(n *html.Node) bool {
		if count >= 5 {
			return false
		}
		if n.Type != html.ElementNode {
			return true
		}
		if n.Data == "h1" || n.Data == "h2" ||
			hasClass(n, "kopf") || hasClass(n, "header") ||
			hasClass(n, "entscheidung") || hasClass(n, "az") || hasClass(n, "aktenzeichen") {
			parts = append(parts, nodeText(n))
			count++
			return true
		}
		return true
	})
	return cleanText(strings.Join(parts, " "))
}

var sectionHeadings = map[string]bool{"h1": true, "h2": true, "h3": true, "strong": true}

// extractSection returns the text between a heading containing the word
// and the next heading. Used for the Leitsatz and Tenor blocks.
func extractSection(root *html.Node, word string) string {
	needle := strings.ToLower(word)
	for _, h := range findAll(root, "h2", "h3", "strong") {
		if !strings.Contains(strings.ToLower(nodeText(h)), needle) {
			continue
		}
		var parts []string
		for sib := h.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sectionHeadings[sib.Data] {
				break
			}
			var text string
			if sib.Type == html.TextNode {
				text = cleanText(sib.Data)
			} else {
				text = nodeText(sib)
			}
			if text != "" {
				parts = append(parts, text)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n\n"))
	}
	return ""
}

var caseHrefSegments = []string{"/urteil", "/entscheidung", "/rechtsprechung"}

// extractReferences collects statute and case links cited on the page.
func extractReferences(root *html.Node, absolute func(string) string) *dataset.References {
	laws := make(map[string]bool)
	cases := make(map[string]bool)
	for _, a := range findAll(root, "a") {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		if strings.HasPrefix(href, "/gesetze") {
			laws[absolute(href)] = true
			continue
		}
		for _, seg := range caseHrefSegments {
			if strings.Contains(href, seg) {
				cases[absolute(href)] = true
				break
			}
		}
	}
	if len(laws) == 0 && len(cases) == 0 {
		return nil
	}
	return &dataset.References{
		Laws:  sortedKeys(laws),
		Cases: sortedKeys(cases),
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Official publication sites whose pages carry the full judgment text.
var preferredHosts = []string{
	"bundesgerichtshof.de",
	"bverfg.de",
	"rechtsprechung-im-internet.de",
	"openjur.de",
	"rechtsinformationen.bund.de",
	"eur-lex.europa.eu",
}

// fullTextLinks orders the outbound links of a case page: official
// publication hosts first, then any other external link.
func fullTextLinks(root *html.Node, absolute func(string) string) []string {
	var preferred, rest []string
	seen := make(map[string]bool)
	for _, a := range findAll(root, "a") {
		raw := attr(a, "href")
		if raw == "" {
			continue
		}
		href := raw
		if strings.HasPrefix(href, "/") {
			href = absolute(href)
		}
		if !strings.HasPrefix(href, "http") || seen[href] {
			continue
		}
		isPreferred := false
		for _, host := range preferredHosts {
			if strings.Contains(href, host) {
				isPreferred = true
				break
			}
		}
		switch {
		case isPreferred:
			seen[href] = true
			preferred = append(preferred, href)
		case strings.HasPrefix(raw, "http"):
			// Relative links point back into the site being scraped;
			// only follow links that were already absolute.
			seen[href] = true
			rest = append(rest, href)
		}
	}
	return append(preferred, rest...)
}

var judgmentMarkers = []string{"Tatbestand", "Entscheidungsgründe", "Tenor", "Gründe"}

// looksLikeJudgment reports whether extracted page text plausibly is a
// full decision rather than a landing or overview page.
func looksLikeJudgment(text string) bool {
	if len(text) <= 1500 {
		return false
	}
	for _, marker := range judgmentMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
