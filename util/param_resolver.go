package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile("{(.*?)}")

// ResolveAttributes replaces {$.path} tokens in attribute values with the
// jsonpath lookup of path against variables. Tokens that do not resolve are
// replaced by an empty string.
func ResolveAttributes(attributes map[string]string, variables map[string]any) map[string]string {
	out := make(map[string]string, len(attributes))
	for k, v := range attributes {
		out[k] = ResolveString(v, variables)
	}
	return out
}

func ResolveString(value string, variables map[string]any) string {
	tokens := tokenPattern.FindAllString(value, -1)
	if len(tokens) == 0 {
		return value
	}
	tokenMap := make(map[string]any)
	for _, token := range tokens {
		tmatch := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		if !strings.HasPrefix(tmatch, "$") {
			continue
		}
		resolved, err := jsonpath.JsonPathLookup(variables, tmatch)
		if err != nil {
			resolved = ""
		}
		tokenMap[token] = resolved
	}
	for t, tv := range tokenMap {
		value = strings.ReplaceAll(value, t, fmt.Sprintf("%v", tv))
	}
	return value
}

// Lookup evaluates a jsonpath expression such as $.order.id against variables.
func Lookup(variables map[string]any, path string) (any, error) {
	return jsonpath.JsonPathLookup(variables, path)
}
