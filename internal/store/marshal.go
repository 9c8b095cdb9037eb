package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/reach/internal/ir"
)

// marshalRegions converts a region list to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalRegions(regions []string) (string, error) {
	list := make(ir.List, len(regions))
	for i, r := range regions {
		list[i] = ir.String(r)
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal regions: %w", err)
	}
	return string(data), nil
}

// unmarshalRegions parses canonical JSON TEXT back into a region list.
// Returns an empty slice (not nil) for an empty list.
func unmarshalRegions(data string) ([]string, error) {
	regions := []string{}
	if data == "" {
		return regions, nil
	}
	if err := json.Unmarshal([]byte(data), &regions); err != nil {
		return nil, fmt.Errorf("unmarshal regions: %w", err)
	}
	return regions, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
