package retriever

import "regexp"

var (
	markdownLinkURLPattern = regexp.MustCompile(`\((https?://[^)\s]+)\)`)
	bareURLPattern         = regexp.MustCompile(`https?://\S+`)
)

// CleanSourceURL extracts a usable URL from a raw source_url field that
// may carry Markdown link syntax around the real address
// (`[text](https://...)`). It prefers the first Markdown-link target;
// failing that, it falls back to the last bare URL found in the field.
func CleanSourceURL(raw string) string {
	if m := markdownLinkURLPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	matches := bareURLPattern.FindAllString(raw, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}
