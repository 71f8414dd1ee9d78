package milvus

import (
	"strings"

	"github.com/kailas-cloud/arxivsearch/internal/domain"
	"github.com/kailas-cloud/arxivsearch/internal/domain/search/filter"
)

// buildExpr translates a filter into a Milvus boolean expression. MatchAll is "".
// Multi-valued tags are stored as "|a|b|" strings and matched with like.
func buildExpr(expr filter.Expression) string {
	switch expr.Kind() {
	case filter.KindTagEquals:
		if expr.Field() == domain.FieldCategories {
			return buildLikeAny(expr.Field(), expr.Values())
		}
		return buildIn(expr.Field(), expr.Values())
	case filter.KindAnd:
		return "(" + buildExpr(expr.Left()) + " and " + buildExpr(expr.Right()) + ")"
	case filter.KindOr:
		return "(" + buildExpr(expr.Left()) + " or " + buildExpr(expr.Right()) + ")"
	default:
		return ""
	}
}

func buildIn(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return field + " in [" + strings.Join(quoted, ", ") + "]"
}

func buildLikeAny(field string, values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = field + " like " + quote("%"+domain.TagSeparator+likeEscaper.Replace(v)+domain.TagSeparator+"%")
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

func quote(s string) string {
	return `"` + exprEscaper.Replace(s) + `"`
}

var exprEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// likeEscaper makes LIKE wildcards in a value match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// wrapTags renders categories so every tag is enclosed by separators.
func wrapTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return domain.TagSeparator + strings.Join(tags, domain.TagSeparator) + domain.TagSeparator
}
