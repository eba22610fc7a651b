package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/mpawlik/gridcal/internal/events"
)

// StringArg extracts a trimmed string argument. ok is false when the key
// is absent, of a different type, or blank.
func StringArg(args map[string]interface{}, key string) (string, bool) {
	val, ok := args[key].(string)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false
	}
	return val, true
}

// TimeArg parses a required RFC3339 time argument.
func TimeArg(args map[string]interface{}, key string) (time.Time, error) {
	raw, ok := StringArg(args, key)
	if !ok {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: expected RFC3339, got %q", key, raw)
	}
	return parsed, nil
}

// SlotFromArgs builds a slot from the "start" and "end" arguments. The
// slot is not validated here; callers decide how to report an invalid
// range.
func SlotFromArgs(args map[string]interface{}) (events.Slot, error) {
	start, err := TimeArg(args, "start")
	if err != nil {
		return events.Slot{}, err
	}
	end, err := TimeArg(args, "end")
	if err != nil {
		return events.Slot{}, err
	}
	return events.Slot{Start: start, End: end}, nil
}

// TitleFromArgs returns the trimmed "title" argument, or "" when absent.
func TitleFromArgs(args map[string]interface{}) string {
	title, _ := StringArg(args, "title")
	return title
}
