package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CategoryRef is a product's category key. The backend sends either a taxonomy
// slug or a numeric category id; both normalize to their string form so a
// filter can compare them with ==.
type CategoryRef string

// UnmarshalJSON implements json.Unmarshaler.
func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = CategoryRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("category id must be a string or number: %w", err)
	}
	*c = CategoryRef(n.String())
	return nil
}

// MarshalJSON sends numeric ids back as numbers and slugs as strings.
func (c CategoryRef) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(c), 10, 64); err == nil {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

func (c CategoryRef) String() string {
	return string(c)
}
