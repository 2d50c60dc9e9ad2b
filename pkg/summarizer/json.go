package summarizer

import "encoding/json"

// NewJSONFormatter returns a Formatter producing indented JSON.
func NewJSONFormatter() Formatter {
	return FormatFunc(func(s *Summary) string {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "{}"
		}
		return string(data) + "\n"
	})
}
