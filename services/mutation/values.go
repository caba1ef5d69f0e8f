// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mutation

import (
	"math"
	"strconv"
	"strings"
	"time"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	"github.com/taigaio/taiga-back-sub001/modules/json"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// Patch values arrive decoded from JSON: numbers may be float64 or json.Number, a nil clears the field.

func asString(field string, v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	}
	return "", agile_model.NewErrValidation(field, "expected a string, got %T", v)
}

func asRequiredString(field string, v any) (string, error) {
	s, err := asString(field, v)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", agile_model.NewErrValidation(field, "this field is required")
	}
	return s, nil
}

// asID reads a foreign key, nil and 0 mean none
func asID(field string, v any) (int64, error) {
	id, err := asInt(field, v)
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, agile_model.NewErrValidation(field, "invalid id %d", id)
	}
	return id, nil
}

func asInt(field string, v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		if val != math.Trunc(val) {
			return 0, agile_model.NewErrValidation(field, "expected an integer, got %v", val)
		}
		return int64(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, agile_model.NewErrValidation(field, "expected an integer, got %s", val)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, agile_model.NewErrValidation(field, "expected an integer, got %q", val)
		}
		return n, nil
	}
	return 0, agile_model.NewErrValidation(field, "expected an integer, got %T", v)
}

func asFloat(field string, v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, agile_model.NewErrValidation(field, "expected a number, got %s", val)
		}
		return f, nil
	}
	return 0, agile_model.NewErrValidation(field, "expected a number, got %T", v)
}

func asBool(field string, v any) (bool, error) {
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	}
	return false, agile_model.NewErrValidation(field, "expected a boolean, got %T", v)
}

// asTags reads a tag list, tags are trimmed, lower-cased and deduplicated
func asTags(field string, v any) ([]string, error) {
	var raw []string
	switch val := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		raw = val
	case []any:
		raw = make([]string, 0, len(val))
		for _, t := range val {
			s, ok := t.(string)
			if !ok {
				return nil, agile_model.NewErrValidation(field, "expected a list of strings, got a %T", t)
			}
			raw = append(raw, s)
		}
	default:
		return nil, agile_model.NewErrValidation(field, "expected a list of strings, got %T", v)
	}
	return util.NormalizeTags(raw), nil
}

// asDate reads a date given as "2006-01-02", RFC 3339 or unix seconds
func asDate(field string, v any) (timeutil.TimeStamp, error) {
	if s, ok := v.(string); ok {
		for _, layout := range []string{time.DateOnly, time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return timeutil.FromTime(t), nil
			}
		}
		return 0, agile_model.NewErrValidation(field, "invalid date %q", s)
	}
	n, err := asInt(field, v)
	return timeutil.TimeStamp(n), err
}

// asPoints reads the estimation patch, role id to points id
func asPoints(field string, v any) (map[int64]int64, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, agile_model.NewErrValidation(field, "expected an object of role to points, got %T", v)
	}
	points := make(map[int64]int64, len(m))
	for role, pv := range m {
		roleID, err := strconv.ParseInt(role, 10, 64)
		if err != nil {
			return nil, agile_model.NewErrValidation(field, "invalid role %q", role)
		}
		pointsID, err := asID(field, pv)
		if err != nil {
			return nil, err
		}
		points[roleID] = pointsID
	}
	return points, nil
}
