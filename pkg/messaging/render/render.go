// Package render substitutes named placeholders of the form {FieldName} in
// email subject and body templates.
package render

import "regexp"

// A placeholder is an opening brace followed by a field name (letter, then
// letters/digits/underscores) and a closing brace. Anything else involving
// braces, such as literal JSON snippets like {"key": "value"}, passes through
// rendering unchanged.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// Render replaces known placeholders with their field values. Placeholders
// naming unknown fields are left untouched rather than raising an error.
func Render(template string, fields map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := fields[name]; ok {
			return value
		}
		return match
	})
}
