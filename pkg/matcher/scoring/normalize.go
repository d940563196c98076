package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"

	sharederrors "github.com/opportumatch/matcher/pkg/shared/errors"
)

// RawScore is the fully normalized, clamped reply from the scoring LLM
// call. No code downstream of normalization is permitted to see an
// un-normalized reply.
type RawScore struct {
	SectorMatch    float64
	StageMatch     float64
	FundingMatch   float64
	GoalAlignment  float64
	Reasons        []string
	Improvements   []string
}

// fieldAliases lists the gojq paths tried, in order, for each canonical
// field — covering the camelCase aliases a reply may use instead of the
// requested snake_case keys.
var fieldAliases = map[string][]string{
	"sector_match":   {".sector_match", ".sectorMatch", ".sector"},
	"stage_match":    {".stage_match", ".stageMatch", ".stage"},
	"funding_match":  {".funding_match", ".fundingMatch", ".funding"},
	"goal_alignment": {".goal_alignment", ".goalAlignment", ".goal"},
	"reasons":        {".reasons", ".reason"},
	"improvements":   {".improvements", ".improvement", ".suggestions"},
}

// NormalizeReply parses raw (the LLM's full text reply), extracts the
// first balanced JSON object, resolves alias keys, and coerces every
// field to its declared type with clamping and rounding.
func NormalizeReply(raw string) (RawScore, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return RawScore{}, err
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return RawScore{}, sharederrors.Wrapf(err, "failed to decode extracted JSON object")
	}

	sector, err := queryNumeric(decoded, fieldAliases["sector_match"])
	if err != nil {
		return RawScore{}, err
	}
	stage, err := queryNumeric(decoded, fieldAliases["stage_match"])
	if err != nil {
		return RawScore{}, err
	}
	funding, err := queryNumeric(decoded, fieldAliases["funding_match"])
	if err != nil {
		return RawScore{}, err
	}
	goal, err := queryNumeric(decoded, fieldAliases["goal_alignment"])
	if err != nil {
		return RawScore{}, err
	}

	reasons := queryStringList(decoded, fieldAliases["reasons"])
	improvements := queryStringList(decoded, fieldAliases["improvements"])

	return RawScore{
		SectorMatch:   roundToTenth(clamp01(sector)),
		StageMatch:    roundToTenth(clamp01(stage)),
		FundingMatch:  roundToTenth(clamp01(funding)),
		GoalAlignment: clamp01(goal),
		Reasons:       reasons,
		Improvements:  improvements,
	}, nil
}

// runQuery evaluates a compiled gojq query against decoded input and
// returns its first non-null result, or (nil, false) on a miss or error.
func runQuery(input interface{}, path string) (interface{}, bool) {
	query, err := gojq.Parse(path)
	if err != nil {
		return nil, false
	}
	iter := query.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, false
	}
	if err, isErr := v.(error); isErr {
		_ = err
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	return v, true
}

// queryNumeric tries each alias path in order and coerces the first hit
// to a float64, tolerating a numeric-as-string encoding.
func queryNumeric(input interface{}, paths []string) (float64, error) {
	for _, path := range paths {
		v, ok := runQuery(input, path)
		if !ok {
			continue
		}
		f, err := toFloat(v)
		if err == nil {
			return f, nil
		}
	}
	return 0, nil
}

func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case string:
		trimmed := strings.TrimSpace(val)
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// queryStringList tries each alias path and coerces the first hit to a
// list of non-empty strings: a single string is split on newlines and
// leading bullet markers; a list of dicts is unwrapped by common text
// keys ("text", "reason", "item").
func queryStringList(input interface{}, paths []string) []string {
	for _, path := range paths {
		v, ok := runQuery(input, path)
		if !ok {
			continue
		}
		items := coerceStringList(v)
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func coerceStringList(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return splitItems(val)
	case []interface{}:
		var out []string
		for _, elem := range val {
			switch e := elem.(type) {
			case string:
				if s := strings.TrimSpace(e); s != "" {
					out = append(out, s)
				}
			case map[string]interface{}:
				for _, key := range []string{"text", "reason", "item", "improvement"} {
					if s, ok := e[key].(string); ok && strings.TrimSpace(s) != "" {
						out = append(out, strings.TrimSpace(s))
						break
					}
				}
			}
		}
		return out
	default:
		return nil
	}
}

func splitItems(s string) []string {
	lines := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimLeft(trimmed, "-•* \t")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
