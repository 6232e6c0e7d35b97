package stateful

import (
	"encoding/json"
	"fmt"
	"io"
)

// Codec determines how state instances are encoded. Codecs work on typed
// states: encoding serializes the declared fields, decoding validates the
// wire fields against the declared type and fills absent fields from the
// type defaults.
type Codec interface {
	Encode(w io.Writer, s *State) error
	Decode(r io.Reader, t *Type) (*State, error)
}

// JSONCodec encodes states as JSON field-to-value mappings.
type JSONCodec struct{}

// Encode writes the state's fields as one JSON object.
func (c JSONCodec) Encode(w io.Writer, s *State) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(s.Serialize())
}

// Decode reads a JSON object and builds an instance of t from it. A field
// not declared on t is rejected; a declared field missing from the wire
// takes its default, and lazy defaults compute from the decoded values of
// earlier fields.
func (c JSONCodec) Decode(r io.Reader, t *Type) (*State, error) {
	decoder := json.NewDecoder(r)

	var values map[string]interface{}

	err := decoder.Decode(&values)
	if err != nil {
		return nil, err
	}

	for name := range values {
		if !t.HasField(name) {
			return nil, fmt.Errorf("state type %s has no field %q",
				t.ID(), name)
		}
	}

	return t.New(values), nil
}
