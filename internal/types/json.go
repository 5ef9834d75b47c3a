package types

import "encoding/json"

func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// JSONInto decodes a JSONB column into v. Empty columns decode to the zero
// value without error.
func JSONInto(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// MustJSON marshals v, returning "{}" when marshalling fails. Used for
// JSONB columns where a marshal failure should never abort a row write.
func MustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
