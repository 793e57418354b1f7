package orchestrator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// codeBlockRe matches fenced code blocks (``` ... ```).
var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// versionRe matches a product name followed by a dotted release such as
// "S/4HANA 2023.1", "ECC 6.0" or "Fiori v3.2".
var versionRe = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9_/.-]*)\s+v?(\d+\.\d+(?:\.\d+)?)\b`)

// CheckCoherence performs a lightweight cross-section consistency scan. It
// flags sections that use a term the shared context maps to a different
// canonical term, and products mentioned with different releases in
// different sections. Fenced code blocks are ignored. Issues are sorted by
// section and description.
func CheckCoherence(sections []Section, terminology map[string]string) []CoherenceIssue {
	var issues []CoherenceIssue

	cleaned := make([]Section, len(sections))
	for i, sec := range sections {
		cleaned[i] = Section{ID: sec.ID, Text: codeBlockRe.ReplaceAllString(sec.Text, "")}
	}

	issues = append(issues, terminologyIssues(cleaned, terminology)...)
	issues = append(issues, versionIssues(cleaned)...)

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].SectionA != issues[j].SectionA {
			return issues[i].SectionA < issues[j].SectionA
		}
		return issues[i].Description < issues[j].Description
	})
	return issues
}

func terminologyIssues(sections []Section, terminology map[string]string) []CoherenceIssue {
	type alias struct {
		term, canonical string
		termRe          *regexp.Regexp
		canonicalRe     *regexp.Regexp
	}
	var aliases []alias
	for term, canonical := range terminology {
		if len(term) < 3 || strings.EqualFold(term, canonical) {
			continue
		}
		aliases = append(aliases, alias{
			term:        term,
			canonical:   canonical,
			termRe:      regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`),
			canonicalRe: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(canonical)),
		})
	}

	var issues []CoherenceIssue
	for _, sec := range sections {
		for _, a := range aliases {
			// Occurrences inside the canonical term itself are not drift.
			text := a.canonicalRe.ReplaceAllString(sec.Text, "")
			if a.termRe.MatchString(text) {
				issues = append(issues, CoherenceIssue{
					Kind:        "terminology",
					SectionA:    sec.ID,
					Description: fmt.Sprintf("uses %q instead of canonical term %q", a.term, a.canonical),
				})
			}
		}
	}
	return issues
}

func versionIssues(sections []Section) []CoherenceIssue {
	// versions maps product name -> version -> section ids.
	versions := make(map[string]map[string][]string)

	for _, sec := range sections {
		seen := make(map[string]bool)
		for _, match := range versionRe.FindAllStringSubmatch(sec.Text, -1) {
			name := strings.ToLower(match[1])
			version := match[2]
			if seen[name+"@"+version] {
				continue
			}
			seen[name+"@"+version] = true

			if versions[name] == nil {
				versions[name] = make(map[string][]string)
			}
			versions[name][version] = append(versions[name][version], sec.ID)
		}
	}

	var issues []CoherenceIssue
	for product, byVersion := range versions {
		if len(byVersion) <= 1 {
			continue
		}
		vs := make([]string, 0, len(byVersion))
		for v := range byVersion {
			vs = append(vs, v)
		}
		sort.Strings(vs)

		for i := 0; i < len(vs); i++ {
			for j := i + 1; j < len(vs); j++ {
				a, b := byVersion[vs[i]], byVersion[vs[j]]
				issues = append(issues, CoherenceIssue{
					Kind:     "version",
					SectionA: a[0],
					SectionB: b[0],
					Description: fmt.Sprintf("%q has conflicting releases: %s (in %s) vs %s (in %s)",
						product, vs[i], strings.Join(a, ", "), vs[j], strings.Join(b, ", ")),
				})
			}
		}
	}
	return issues
}
