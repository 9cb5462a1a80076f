package vectordb

import (
	"fmt"
	"regexp"
	"strings"

	"OmniAgent/internal/modules/knowledge/domain/repository"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// milvusExpr 把 Filter 转成 milvus 布尔表达式，例如 user_id == "u1" && source_id == "s1"
func milvusExpr(filter repository.Filter) (string, error) {
	if len(filter) == 0 {
		return "", fmt.Errorf("empty filter")
	}
	parts := make([]string, 0, len(filter))
	for _, f := range filter {
		if !fieldNamePattern.MatchString(f.Key) {
			return "", fmt.Errorf("invalid filter field %q", f.Key)
		}
		parts = append(parts, fmt.Sprintf(`%s == %s`, f.Key, quote(f.Value)))
	}
	return strings.Join(parts, " && "), nil
}

func milvusIDsExpr(ids []string) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, quote(id))
	}
	return fmt.Sprintf("id in [%s]", strings.Join(quoted, ","))
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// qdrantFilter {"must":[{"key":..,"match":{"value":..}}]}
func qdrantFilter(filter repository.Filter) (map[string]any, error) {
	if len(filter) == 0 {
		return nil, fmt.Errorf("empty filter")
	}
	must := make([]any, 0, len(filter))
	for _, f := range filter {
		if !fieldNamePattern.MatchString(f.Key) {
			return nil, fmt.Errorf("invalid filter field %q", f.Key)
		}
		must = append(must, map[string]any{
			"key":   f.Key,
			"match": map[string]any{"value": f.Value},
		})
	}
	return map[string]any{"must": must}, nil
}
