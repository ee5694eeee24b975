package plan

import (
	stderrors "errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
)

// kind is the value type a plan key accepts.
type kind int

const (
	kindString kind = iota
	kindInt
	kindBool
	kindDuration
	kindDurationList
	kindFloatList
)

// schema lists every canonical plan key.
//
//nolint:gochecknoglobals // static schema table
var schema = map[string]kind{
	"name":                  kindString,
	"initial_delay_time":    kindDuration,
	"number_limit":          kindInt,
	"time_limit":            kindDuration,
	"repeat":                kindInt,
	"repeat_interval_time":  kindDuration,
	"interval_mode":         kindString,
	"interval_time":         kindDuration,
	"integration_time":      kindDurationList,
	"loop_integration_time": kindBool,
	"gain":                  kindFloatList,
	"loop_gain":             kindBool,
	"all_combinations":      kindBool,
	"min_tick_length":       kindDuration,
}

// aliases maps alternative key spellings onto canonical keys.
//
//nolint:gochecknoglobals // static schema table
var aliases = map[string]string{
	"initial_delay":      "initial_delay_time",
	"repeat_interval":    "repeat_interval_time",
	"interval":           "interval_time",
	"exposure_time":      "integration_time",
	"exposure":           "integration_time",
	"loop_exposure":      "loop_integration_time",
	"loop_exposure_time": "loop_integration_time",
	"min_tick_period":    "min_tick_length",
}

const defaultUnitKey = "default_time_unit"

// rawValue is a plan value as found in the file, before conversion.
type rawValue struct {
	node *yaml.Node
	// unit is set when the key itself names the unit, as in interval_secs.
	unit string
}

// Parse reads a plan file. Lines have the form `key: value`; lists use
// brackets and `#` starts a comment. Keys are case-insensitive and spaces
// in keys are read as underscores.
func Parse(r io.Reader) (Plan, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !stderrors.Is(err, io.EOF) {
		return Plan{}, errors.Wrapf(errors.ErrInvalidPlan, "malformed plan: %v", err)
	}

	p := Default()
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == 0 {
		return p, nil
	}
	if root.Kind != yaml.MappingNode {
		return Plan{}, errors.Wrap(errors.ErrInvalidPlan, "plan must be a list of key: value lines")
	}

	values := make(map[string]rawValue)
	units := make(map[string]string)

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := normalizeKey(root.Content[i].Value)
		node := root.Content[i+1]

		if key == defaultUnitKey {
			units[key] = node.Value
			continue
		}
		if base, ok := strings.CutSuffix(key, "_unit"); ok {
			if canon := canonical(base); schema[canon] == kindDuration || schema[canon] == kindDurationList {
				units[canon] = node.Value
				continue
			}
		}
		if base, ok := strings.CutSuffix(key, "_secs"); ok {
			if canon := canonical(base); schema[canon] == kindDuration || schema[canon] == kindDurationList {
				values[canon] = rawValue{node: node, unit: "s"}
				continue
			}
		}

		canon := canonical(key)
		if _, ok := schema[canon]; !ok {
			return Plan{}, errors.Wrapf(errors.ErrUnknownPlanKey, "line %d: %q", root.Content[i].Line, key)
		}
		values[canon] = rawValue{node: node}
	}

	for key, unit := range units {
		if _, err := unitOf(unit); err != nil {
			return Plan{}, errors.Wrapf(err, "%s_unit", key)
		}
	}

	for key, raw := range values {
		unit := raw.unit
		if unit == "" {
			unit = units[key]
		}
		if unit == "" {
			unit = units[defaultUnitKey]
		}
		if err := p.apply(key, raw.node, unit); err != nil {
			return Plan{}, errors.Wrapf(err, "line %d: %s", raw.node.Line, key)
		}
	}

	p.Normalize()
	return p, nil
}

// LoadFile parses the plan at path. A plan without a name takes the file's base name.
func LoadFile(path string) (Plan, error) {
	f, err := os.Open(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return Plan{}, errors.Wrapf(err, "failed to open plan %s", path)
	}
	defer func() { _ = f.Close() }()

	p, err := Parse(f)
	if err != nil {
		return Plan{}, errors.Wrapf(err, "plan %s", filepath.Base(path))
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

func (p *Plan) apply(key string, node *yaml.Node, unit string) error {
	switch schema[key] {
	case kindString:
		if node.Kind != yaml.ScalarNode {
			return errors.Wrap(errors.ErrInvalidPlanValue, "expected a single value")
		}
		return p.applyString(key, strings.TrimSpace(node.Value))
	case kindInt:
		f, err := scalarFloat(node)
		if err != nil {
			return err
		}
		n := int(math.Trunc(max(min(f, math.MaxInt32), math.MinInt32)))
		if key == "number_limit" {
			p.NumberLimit = n
		} else {
			p.Repeat = n
		}
	case kindBool:
		b, err := scalarBool(node)
		if err != nil {
			return err
		}
		switch key {
		case "loop_integration_time":
			p.LoopExposure = b
		case "loop_gain":
			p.LoopGain = b
		case "all_combinations":
			p.AllCombinations = b
		}
	case kindDuration:
		if node.Kind != yaml.ScalarNode {
			return errors.Wrap(errors.ErrInvalidPlanValue, "expected a single time value")
		}
		d, err := parseDuration(node.Value, unit)
		if err != nil {
			return err
		}
		switch key {
		case "initial_delay_time":
			p.InitialDelay = d
		case "time_limit":
			p.TimeLimit = d
		case "repeat_interval_time":
			p.RepeatInterval = d
		case "interval_time":
			p.Interval = d
		case "min_tick_length":
			p.MinTickPeriod = d
		}
	case kindDurationList:
		items, err := listItems(node)
		if err != nil {
			return err
		}
		p.Exposures = make([]time.Duration, 0, len(items))
		for _, item := range items {
			d, err := parseDuration(item, unit)
			if err != nil {
				return err
			}
			p.Exposures = append(p.Exposures, d)
		}
	case kindFloatList:
		items, err := listItems(node)
		if err != nil {
			return err
		}
		p.Gains = make([]float64, 0, len(items))
		for _, item := range items {
			f, err := parseFinite(item)
			if err != nil {
				return err
			}
			p.Gains = append(p.Gains, f)
		}
	}
	return nil
}

func (p *Plan) applyString(key, value string) error {
	switch key {
	case "name":
		p.Name = value
	case "interval_mode":
		mode := constants.IntervalMode(strings.ToLower(value))
		if !mode.Valid() {
			return errors.Wrapf(errors.ErrInvalidPlanValue, "interval mode %q, expected %s or %s",
				value, constants.IntervalFromCaptureStart, constants.IntervalFromCaptureEnd)
		}
		p.IntervalMode = mode
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
}

func canonical(key string) string {
	if c, ok := aliases[key]; ok {
		return c
	}
	return key
}

func listItems(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, c := range node.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, errors.Wrap(errors.ErrInvalidPlanValue, "nested lists are not allowed")
			}
			items = append(items, c.Value)
		}
		if len(items) == 0 {
			return nil, errors.Wrap(errors.ErrInvalidPlan, "empty list")
		}
		return items, nil
	default:
		return nil, errors.Wrap(errors.ErrInvalidPlanValue, "expected a value or a list")
	}
}

func scalarFloat(node *yaml.Node) (float64, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, errors.Wrap(errors.ErrInvalidPlanValue, "expected a single number")
	}
	return parseFinite(node.Value)
}

// parseFinite reads a number, rejecting NaN and the infinities.
func parseFinite(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidPlanValue, "%q is not a number", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Wrapf(errors.ErrInvalidPlanValue, "%q is not a finite number", value)
	}
	return f, nil
}

func scalarBool(node *yaml.Node) (bool, error) {
	if node.Kind != yaml.ScalarNode {
		return false, errors.Wrap(errors.ErrInvalidPlanValue, "expected true or false")
	}
	switch strings.ToLower(strings.TrimSpace(node.Value)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, errors.Wrapf(errors.ErrInvalidPlanValue, "%q is not a boolean", node.Value)
	}
}

// parseDuration reads a bare number in unit, or a Go duration string such as "250ms".
func parseDuration(value, unit string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		f, err := parseFinite(value)
		if err != nil {
			return 0, err
		}
		mult, err := unitOf(unit)
		if err != nil {
			return 0, err
		}
		d := math.Round(f * float64(mult))
		if math.Abs(d) >= math.MaxInt64 {
			return 0, errors.Wrapf(errors.ErrInvalidPlanValue, "%q %s is out of range", value, unit)
		}
		return time.Duration(d), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidPlanValue, "%q is not a time value", value)
	}
	return d, nil
}

// unitOf returns the length of one unit. An empty unit means seconds.
func unitOf(unit string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "hours", "hour", "hrs", "hr", "hs", "h":
		return time.Hour, nil
	case "minutes", "minute", "mins", "min", "m":
		return time.Minute, nil
	case "", "seconds", "second", "secs", "sec", "s":
		return time.Second, nil
	case "milliseconds", "millisecond", "ms":
		return time.Millisecond, nil
	case "microseconds", "microsecond", "us", "µs":
		return time.Microsecond, nil
	default:
		return 0, errors.Wrapf(errors.ErrInvalidPlanValue, "unknown time unit %q", unit)
	}
}
