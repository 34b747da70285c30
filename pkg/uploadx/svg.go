package uploadx

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Script elements are removed together with their content before any
	// per-tag filtering.
	svgScriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	svgScriptTagRe   = regexp.MustCompile(`(?is)<script\b[^>]*/?>`)
	svgCommentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)

	// Matches a style element with its body; groups: open tag, body,
	// close tag. The body is CSS text and never goes through the tag
	// filter, so it gets its own scheme inspection.
	svgStyleBlockRe = regexp.MustCompile(`(?is)(<style\b[^>]*>)(.*?)(</style\s*>)`)

	// Matches any element tag; groups: close slash, tag name, raw
	// attributes, self-close slash.
	svgTagRe = regexp.MustCompile(`(?s)<(/?)([a-zA-Z][a-zA-Z0-9:_-]*)((?:[^>"']|"[^"]*"|'[^']*')*?)(/?)>`)

	// Matches one attribute inside a tag body.
	svgAttrRe = regexp.MustCompile(`([a-zA-Z_:][a-zA-Z0-9:._-]*)\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)

	// Control characters and whitespace used to disguise URI schemes,
	// e.g. "java\tscript:".
	svgSchemeObfuscationRe = regexp.MustCompile(`[\x00-\x20]+`)

	svgRootRe = regexp.MustCompile(`(?i)<svg\b`)
)

// SanitizeSVG rewrites SVG content down to the allow-listed tags and
// attributes, removing scripts, comments, event handlers and dangerous
// URI schemes, in tag attributes and style sheets alike. It returns the
// sanitized content and whether any content was removed; rewrites that
// only reformat surviving markup do not count. An error means no usable
// <svg> element survived.
func SanitizeSVG(content []byte) ([]byte, bool, error) {
	s := &svgSanitizer{}

	out := svgScriptBlockRe.ReplaceAllStringFunc(string(content), s.drop)
	out = svgScriptTagRe.ReplaceAllStringFunc(out, s.drop)
	out = svgCommentRe.ReplaceAllStringFunc(out, s.drop)
	out = svgStyleBlockRe.ReplaceAllStringFunc(out, s.sanitizeStyleBlock)
	out = svgTagRe.ReplaceAllStringFunc(out, s.sanitizeTag)

	if !svgRootRe.MatchString(out) {
		return nil, true, fmt.Errorf("no svg content left after sanitization (policy v%d)", svgPolicyVersion)
	}

	return []byte(out), s.dropped, nil
}

// svgSanitizer records whether any tag, attribute or style content was
// actually removed during a pass.
type svgSanitizer struct {
	dropped bool
}

func (s *svgSanitizer) drop(string) string {
	s.dropped = true
	return ""
}

// sanitizeStyleBlock empties a <style> element whose CSS smuggles a
// dangerous URI or an expression() call. CSS has no event handlers, so
// the scheme check covers the attack surface.
func (s *svgSanitizer) sanitizeStyleBlock(block string) string {
	parts := svgStyleBlockRe.FindStringSubmatch(block)
	if parts == nil {
		return block
	}
	open, body, closing := parts[1], parts[2], parts[3]

	normalized := strings.ToLower(svgSchemeObfuscationRe.ReplaceAllString(body, ""))
	if strings.Contains(normalized, "expression(") || hasDangerousScheme(body) {
		s.dropped = true
		return open + closing
	}
	return block
}

// sanitizeTag drops disallowed elements and filters the attributes of
// allowed ones.
func (s *svgSanitizer) sanitizeTag(tag string) string {
	parts := svgTagRe.FindStringSubmatch(tag)
	if parts == nil {
		s.dropped = true
		return ""
	}
	closing, name, rawAttrs, selfClose := parts[1], parts[2], parts[3], parts[4]

	if !svgAllowedTags[name] {
		s.dropped = true
		return ""
	}
	if closing == "/" {
		return "</" + name + ">"
	}

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(name)
	for _, attr := range svgAttrRe.FindAllStringSubmatch(rawAttrs, -1) {
		attrName, quoted := attr[1], attr[2]
		clean, ok := s.sanitizeAttr(attrName, quoted)
		if !ok {
			s.dropped = true
			continue
		}
		b.WriteString(" ")
		b.WriteString(attrName)
		b.WriteString("=")
		b.WriteString(clean)
	}
	if selfClose == "/" {
		b.WriteString("/")
	}
	b.WriteString(">")
	return b.String()
}

// sanitizeAttr decides whether an attribute survives and returns its
// (possibly rewritten) quoted value.
func (s *svgSanitizer) sanitizeAttr(name, quoted string) (string, bool) {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "on") {
		return "", false
	}
	if !svgAllowedAttrs[name] && !svgAllowedAttrs[lower] {
		return "", false
	}

	value := unquoteAttr(quoted)
	if svgURIAttrs[lower] && hasDangerousScheme(value) {
		return "", false
	}
	if lower == "style" {
		clean, propDropped, ok := sanitizeStyle(value)
		if !ok {
			return "", false
		}
		if propDropped {
			s.dropped = true
			return `"` + clean + `"`, true
		}
	}

	if strings.HasPrefix(quoted, `"`) || strings.HasPrefix(quoted, `'`) {
		return quoted, true
	}
	return `"` + quoted + `"`, true
}

// sanitizeStyle drops style properties that smuggle URIs or expressions.
// The original text is returned untouched when every property survives.
func sanitizeStyle(style string) (string, bool, bool) {
	var kept []string
	propDropped := false
	for _, prop := range strings.Split(style, ";") {
		prop = strings.TrimSpace(prop)
		if prop == "" {
			continue
		}
		lowered := strings.ToLower(svgSchemeObfuscationRe.ReplaceAllString(prop, ""))
		if strings.Contains(lowered, "expression(") || hasDangerousScheme(lowered) {
			propDropped = true
			continue
		}
		kept = append(kept, prop)
	}
	if !propDropped {
		return style, false, true
	}
	if len(kept) == 0 {
		return "", true, false
	}
	return strings.Join(kept, "; "), true, true
}

func hasDangerousScheme(value string) bool {
	normalized := strings.ToLower(svgSchemeObfuscationRe.ReplaceAllString(value, ""))
	for _, scheme := range svgDangerousSchemes {
		if strings.Contains(normalized, scheme) {
			return true
		}
	}
	return false
}

func unquoteAttr(quoted string) string {
	if len(quoted) >= 2 {
		if (quoted[0] == '"' && quoted[len(quoted)-1] == '"') ||
			(quoted[0] == '\'' && quoted[len(quoted)-1] == '\'') {
			return quoted[1 : len(quoted)-1]
		}
	}
	return quoted
}
