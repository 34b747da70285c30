package uploadx

// SVG sanitization allow-lists. Kept as data tables so security reviews
// can diff policy changes independently of sanitizer code changes.
// Bump svgPolicyVersion whenever a table entry changes.
const svgPolicyVersion = 1

// svgAllowedTags is the set of SVG elements that survive sanitization.
// Anything not listed is stripped, including its content for
// script-capable elements.
var svgAllowedTags = map[string]bool{
	"svg":            true,
	"g":              true,
	"defs":           true,
	"title":          true,
	"desc":           true,
	"symbol":         true,
	"use":            true,
	"path":           true,
	"rect":           true,
	"circle":         true,
	"ellipse":        true,
	"line":           true,
	"polyline":       true,
	"polygon":        true,
	"text":           true,
	"tspan":          true,
	"linearGradient": true,
	"radialGradient": true,
	"stop":           true,
	"clipPath":       true,
	"mask":           true,
	"pattern":        true,
	"filter":         true,
	"style":          true,
}

// svgAllowedAttrs is the set of attributes that survive sanitization.
// Event handlers are excluded structurally: any attribute starting with
// "on" is stripped before this table is consulted.
var svgAllowedAttrs = map[string]bool{
	"id":                  true,
	"class":               true,
	"style":               true,
	"width":               true,
	"height":              true,
	"viewBox":             true,
	"xmlns":               true,
	"xmlns:xlink":         true,
	"version":             true,
	"preserveAspectRatio": true,
	"x":                   true,
	"y":                   true,
	"x1":                  true,
	"y1":                  true,
	"x2":                  true,
	"y2":                  true,
	"cx":                  true,
	"cy":                  true,
	"r":                   true,
	"rx":                  true,
	"ry":                  true,
	"d":                   true,
	"points":              true,
	"transform":           true,
	"fill":                true,
	"fill-opacity":        true,
	"fill-rule":           true,
	"stroke":              true,
	"stroke-width":        true,
	"stroke-opacity":      true,
	"stroke-linecap":      true,
	"stroke-linejoin":     true,
	"stroke-dasharray":    true,
	"opacity":             true,
	"offset":              true,
	"stop-color":          true,
	"stop-opacity":        true,
	"gradientUnits":       true,
	"gradientTransform":   true,
	"clip-path":           true,
	"clip-rule":           true,
	"mask":                true,
	"filter":              true,
	"href":                true,
	"xlink:href":          true,
	"font-family":         true,
	"font-size":           true,
	"font-weight":         true,
	"text-anchor":         true,
}

// svgURIAttrs are attributes whose values are URIs and must therefore be
// checked against dangerous schemes even when the attribute is allowed.
var svgURIAttrs = map[string]bool{
	"href":       true,
	"xlink:href": true,
}

// svgDangerousSchemes are URI schemes stripped wherever they appear in
// attribute values, inline style properties or style element bodies.
var svgDangerousSchemes = []string{
	"javascript:",
	"data:",
	"vbscript:",
}
