package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/opportumatch/matcher/pkg/matcher/types"
)

var (
	headingPattern = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+(.+)$`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	bulletPattern  = regexp.MustCompile(`(?m)^\s*[-*•▪+]\s+(.+)$`)
	fieldLinePattern = regexp.MustCompile(`(?mi)^(?:الأهداف|Goals|Objectives|الميزات|Features|Eligibility|الأهلية)\s*[:：-]\s*(.+)$`)
)

const maxFallbackBullets = 8

// sectorKeywords maps keyword hits (matched case-insensitively against
// the document) onto the sector tags they imply.
var sectorKeywords = []struct {
	keywords []string
	tags     []string
}{
	{[]string{"health", "الصحة", "تقنية صحية", "digital health"}, []string{"الصحة", "تقنية صحية"}},
	{[]string{"commerce", "تجارة", "التجارة الإلكترونية"}, []string{"التجارة الإلكترونية"}},
	{[]string{"ai", "ذكاء اصطناعي"}, []string{"ذكاء اصطناعي"}},
}

// stageKeywords maps a document pattern onto the stage tag it implies.
var stageKeywords = []struct {
	pattern *regexp.Regexp
	tag     string
}{
	{regexp.MustCompile(`(?i)\bMVP\b|نموذج أولي|نموذج تجريبي`), "MVP"},
	{regexp.MustCompile(`(?i)إطلاق|تدشين|launch`), "إطلاق"},
	{regexp.MustCompile(`(?i)تشغيل|تشغيلي|production|go[- ]?live`), "تشغيل"},
	{regexp.MustCompile(`(?i)نمو مبكر|early growth`), "نمو مبكر"},
}

// FallbackEnrich fills every empty field of program from deterministic
// heuristics over the source markdown: the first heading becomes name,
// the first non-heading/non-bullet paragraph becomes description, the
// first URL becomes url, bullet lines become goals, and keyword
// heuristics populate sector_tags/stage_tags. Fields already populated
// (by a prior LLM call) are left untouched.
func FallbackEnrich(program *types.Program, markdown string) {
	if program.Name == "" {
		if h := firstHeading(markdown); h != "" {
			program.Name = h
		} else {
			program.Name = "برنامج"
		}
	}
	if program.Description == "" {
		program.Description = firstParagraph(markdown)
	}
	if program.URL == "" {
		program.URL = firstURL(markdown)
	}
	if len(program.Goals) == 0 {
		bullets := collectBullets(markdown)
		if len(bullets) == 0 {
			bullets = collectFieldLines(markdown)
		}
		program.Goals = dedupKeepOrder(capItems(bullets, maxFallbackBullets))
	}
	if len(program.Features) == 0 {
		program.Features = dedupKeepOrder(capItems(collectFieldLines(markdown), maxFallbackBullets))
	}
	if len(program.EligibilityMust) == 0 {
		var elig []string
		for _, line := range collectFieldLines(markdown) {
			if strings.Contains(line, "شروط") || strings.Contains(line, "Eligible") || strings.Contains(line, "الأهلية") {
				elig = append(elig, line)
			}
		}
		program.EligibilityMust = dedupKeepOrder(capItems(elig, maxFallbackBullets))
	}
	if len(program.SectorTags) == 0 {
		program.SectorTags = dedupKeepOrder(inferSectorTags(markdown))
	}
	if len(program.StageTags) == 0 {
		program.StageTags = dedupKeepOrder(inferStageTags(markdown))
	}
	if program.Objectives == "" && program.ObjectivesText == "" && len(program.Goals) > 0 {
		limit := program.Goals
		if len(limit) > 3 {
			limit = limit[:3]
		}
		program.ObjectivesText = strings.Join(limit, "؛ ")
	}
	if program.ID == "" {
		program.ID = slugify(program.Name)
	}
}

func firstHeading(md string) string {
	m := headingPattern.FindStringSubmatch(md)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func firstURL(md string) string {
	return urlPattern.FindString(md)
}

func firstParagraph(md string) string {
	for _, para := range strings.Split(strings.TrimSpace(md), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if headingPattern.MatchString(para) || bulletPattern.MatchString(para) {
			continue
		}
		return para
	}
	trimmed := strings.TrimSpace(md)
	if len(trimmed) > 400 {
		return trimmed[:400]
	}
	return trimmed
}

func collectBullets(md string) []string {
	matches := bulletPattern.FindAllStringSubmatch(md, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func collectFieldLines(md string) []string {
	matches := fieldLinePattern.FindAllStringSubmatch(md, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func capItems(items []string, limit int) []string {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func dedupKeepOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.TrimSpace(item)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func inferSectorTags(markdown string) []string {
	lower := strings.ToLower(markdown)
	var tags []string
	for _, group := range sectorKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				tags = append(tags, group.tags...)
				break
			}
		}
	}
	return tags
}

func inferStageTags(markdown string) []string {
	var tags []string
	for _, group := range stageKeywords {
		if group.pattern.MatchString(markdown) {
			tags = append(tags, group.tag)
		}
	}
	return tags
}

// slugify derives a lowercase, hyphenated slug from name, keeping Arabic
// letters (Arabic names have no Latin transliteration to fall back on).
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "program"
	}
	return slug
}
