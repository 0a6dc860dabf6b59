package vault

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// splitFrontmatter implements the frontmatter parsing contract: if content
// begins with "---\n", search forward for the next "\n---\n"; the text
// between is the frontmatter block. If the leading delimiter is absent,
// frontmatter is empty and no error is raised — parsing is tolerant of
// vault files that simply have no frontmatter.
func splitFrontmatter(content string) (raw string, body string, hasFrontmatter bool) {
	if !strings.HasPrefix(content, frontmatterDelim+"\n") {
		return "", content, false
	}

	rest := content[len(frontmatterDelim)+1:]
	idx := strings.Index(rest, "\n"+frontmatterDelim+"\n")
	if idx == -1 {
		// Also accept the closing delimiter as the final line of the file
		// (no trailing newline after it).
		if strings.HasSuffix(rest, "\n"+frontmatterDelim) {
			raw = rest[:len(rest)-len(frontmatterDelim)-1]
			return raw, "", true
		}
		return "", content, false
	}

	raw = rest[:idx]
	body = rest[idx+len(frontmatterDelim)+2:]
	return raw, body, true
}

// parseFrontmatter decodes a YAML frontmatter block into the tagged-variant
// map Document.Frontmatter uses: string, int64, float64, bool, or
// []string. Decode errors are treated the same as absent frontmatter
// (tolerant) — a single malformed block must not abort the whole read.
func parseFrontmatter(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}

	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil || decoded == nil {
		return map[string]any{}
	}

	return normalizeFrontmatter(decoded)
}

// normalizeFrontmatter recursively coerces yaml.v3's native decode types
// (map[string]interface{}, []interface{}, int, etc.) into the scalar/list
// shape the rest of the system expects, flattening yaml.v3's occasional
// map[interface{}]interface{} quirk away.
func normalizeFrontmatter(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		list := make([]string, 0, len(val))
		for _, item := range val {
			list = append(list, scalarToString(item))
		}
		return list
	case int:
		return int64(val)
	case map[string]any, map[any]any:
		// Nested maps aren't part of the filter wire format; stringify for
		// safe round-tripping through predicate matching.
		return fmt.Sprintf("%v", val)
	default:
		return v
	}
}

func scalarToString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// stringTagValue extracts frontmatter["tags"] as a list of strings,
// regardless of whether the YAML author wrote a list or a single scalar.
func stringTagValue(fm map[string]any) []string {
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// stringField extracts a single string-valued frontmatter field.
func stringField(fm map[string]any, key string) string {
	raw, ok := fm[key]
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}
