package claims

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/keyadjusting/contractor-portal/internal/constants"
)

// NotSpecified is the sentinel substituted for absent or empty field values.
const NotSpecified = "Not Specified"

// settlementMarker flags an internal-only settlement-recording field that
// must never reach a snapshot.
const settlementMarker = "Record New Settlement"

// coercion selects how a field's raw value is flattened.
type coercion int

const (
	// coerceGeneric flattens arbitrary objects via name/value/JSON dump.
	coerceGeneric coercion = iota
	// coerceSingleReference takes the display name of the first referenced
	// entity, or a formatted address.
	coerceSingleReference
	// coerceMultiAddress joins address parts with a comma.
	coerceMultiAddress
	// coerceCurrency parses dollar amounts into numbers.
	coerceCurrency
)

// fieldCoercions maps upstream display names to their coercion. The upstream
// system keys fields by human-readable name only, so this table is the single
// place that knows those strings.
var fieldCoercions = map[string]coercion{
	"Contractor Salesman": coerceSingleReference,
	"Policy Holder":       coerceSingleReference,
	"Property Address":    coerceSingleReference,
	"Inspection":          coerceSingleReference,
	"Insurance Carrier":   coerceSingleReference,
	"Key PA":              coerceSingleReference,
	"Loss Address":        coerceMultiAddress,
	"RCV":                 coerceCurrency,
	"ACV":                 coerceCurrency,
}

// BuildSnapshot derives a ClaimSnapshot from one raw task and its comments.
// It is total: any well-formed-JSON value shape degrades to the sentinel
// rather than failing. Field order follows input order.
func BuildSnapshot(task *RawTask, comments []map[string]any) ClaimSnapshot {
	snapshot := ClaimSnapshot{
		ID:          task.ID,
		Name:        task.Name,
		Status:      task.Status,
		Description: task.Description,
		Fields:      make([]Field, 0, len(task.CustomFields)),
		Attachments: task.Attachments,
	}
	if snapshot.Attachments == nil {
		snapshot.Attachments = []map[string]any{}
	}

	for _, field := range task.CustomFields {
		if field.Value == nil || field.HideFromGuests {
			continue
		}
		if strings.Contains(field.Name, settlementMarker) {
			continue
		}
		snapshot.Fields = append(snapshot.Fields, Field{
			Name:  field.Name,
			Value: normalizeValue(field.Name, field.Value),
			Type:  field.Type,
		})
	}

	// Comments arrive newest-first from upstream; keep a prefix, never re-sort.
	if len(comments) > constants.MaxRecentComments {
		comments = comments[:constants.MaxRecentComments]
	}
	snapshot.Comments = comments
	if snapshot.Comments == nil {
		snapshot.Comments = []map[string]any{}
	}

	return snapshot
}

func normalizeValue(name string, value any) any {
	strategy := fieldCoercions[name]

	// Currency fields coerce primitives too; every other strategy applies
	// only to object-shaped values, primitives pass through unchanged.
	if strategy == coerceCurrency {
		return coerceCurrencyValue(value)
	}

	switch value.(type) {
	case map[string]any, []any:
	default:
		return value
	}

	var out any
	switch strategy {
	case coerceSingleReference:
		out = coerceSingleReferenceValue(value)
	case coerceMultiAddress:
		out = coerceMultiAddressValue(value)
	default:
		out = coerceGenericValue(value)
	}

	if out == nil || out == "" {
		return NotSpecified
	}
	return out
}

func coerceSingleReferenceValue(value any) any {
	switch v := value.(type) {
	case []any:
		if len(v) > 0 {
			if entry, ok := v[0].(map[string]any); ok {
				if name, ok := entry["name"].(string); ok && name != "" {
					return name
				}
			}
		}
		return NotSpecified
	case map[string]any:
		if addr, ok := v["formatted_address"].(string); ok && addr != "" {
			return addr
		}
		if name, ok := v["name"].(string); ok && name != "" {
			return name
		}
		return NotSpecified
	default:
		return NotSpecified
	}
}

func coerceMultiAddressValue(value any) any {
	switch v := value.(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if addr, ok := v["formatted_address"].(string); ok && addr != "" {
			return addr
		}
		return NotSpecified
	default:
		return NotSpecified
	}
}

func coerceCurrencyValue(value any) any {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "").Replace(v)
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return float64(0)
		}
		return parsed
	case map[string]any:
		if inner, ok := v["value"]; ok {
			switch n := inner.(type) {
			case float64:
				return n
			case string:
				parsed, err := strconv.ParseFloat(n, 64)
				if err != nil {
					return float64(0)
				}
				return parsed
			}
		}
		return float64(0)
	default:
		return float64(0)
	}
}

func coerceGenericValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["name"].(string); ok && name != "" {
			return name
		}
		if inner, ok := v["value"]; ok && inner != nil {
			return inner
		}
		return jsonDump(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, entry := range v {
			if entry == nil {
				continue
			}
			switch e := entry.(type) {
			case map[string]any:
				if name, ok := e["name"].(string); ok && name != "" {
					parts = append(parts, name)
				} else if inner, ok := e["value"]; ok && inner != nil {
					parts = append(parts, stringify(inner))
				} else {
					parts = append(parts, jsonDump(e))
				}
			default:
				parts = append(parts, stringify(e))
			}
		}
		return strings.Join(parts, ", ")
	default:
		return jsonDump(value)
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return jsonDump(v)
	}
}

func jsonDump(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return NotSpecified
	}
	return string(data)
}
