// Package stateful provides declarative state for atomic models. A state
// type declares named fields with defaults and optional lazy initializers
// over previously declared fields. Instances carry the identity of the type
// that produced them, so a state built for one model class cannot be
// assigned to another.
package stateful

import "fmt"

// An Initializer computes a field default from the values of fields declared
// before it. The getter resolves earlier fields of the instance under
// construction.
type Initializer func(get func(name string) interface{}) interface{}

// A Field is one named slot of a state type.
type Field struct {
	Name    string
	Default interface{}
	Init    Initializer
}

// A Type describes the fields of a state and carries the identity of the
// owning model class.
type Type struct {
	id     string
	parent *Type
	fields []Field
	index  map[string]int
}

// NewType creates a state type for the model class identified by id.
func NewType(id string) *Type {
	return &Type{
		id:    id,
		index: make(map[string]int),
	}
}

// ID returns the identity of the owning model class.
func (t *Type) ID() string { return t.id }

// AddField declares a field with a constant default value.
func (t *Type) AddField(name string, def interface{}) *Type {
	t.mustNotHaveField(name)

	t.index[name] = len(t.fields)
	t.fields = append(t.fields, Field{Name: name, Default: def})

	return t
}

// AddLazyField declares a field whose default is computed from earlier
// fields at construction time.
func (t *Type) AddLazyField(name string, init Initializer) *Type {
	t.mustNotHaveField(name)

	t.index[name] = len(t.fields)
	t.fields = append(t.fields, Field{Name: name, Init: init})

	return t
}

func (t *Type) mustNotHaveField(name string) {
	if _, ok := t.index[name]; ok {
		panic(fmt.Sprintf("field %q already declared on state type %s", name, t.id))
	}
}

// Extend derives a subclass state type that inherits all fields of t.
// Instances of the derived type are not assignable to slots declared for t.
func (t *Type) Extend(id string) *Type {
	child := &Type{
		id:     id,
		parent: t,
		fields: append([]Field(nil), t.fields...),
		index:  make(map[string]int, len(t.index)),
	}

	for name, i := range t.index {
		child.index[name] = i
	}

	return child
}

// Parent returns the type this one extends, or nil.
func (t *Type) Parent() *Type { return t.parent }

// HasField reports whether the type declares a field with the given name.
func (t *Type) HasField(name string) bool {
	_, ok := t.index[name]
	return ok
}

// FieldNames returns the declared field names in declaration order.
func (t *Type) FieldNames() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}

	return names
}

// New builds a state instance. Fields take their declared defaults, lazy
// initializers run in declaration order, and overrides replace specific
// fields. An override for an unknown field is rejected.
func (t *Type) New(overrides map[string]interface{}) *State {
	for name := range overrides {
		if !t.HasField(name) {
			panic(fmt.Sprintf("state type %s has no field %q", t.id, name))
		}
	}

	s := &State{
		typ:    t,
		values: make(map[string]interface{}, len(t.fields)),
	}

	get := func(name string) interface{} { return s.values[name] }

	for _, f := range t.fields {
		if v, ok := overrides[f.Name]; ok {
			s.values[f.Name] = v
			continue
		}

		if f.Init != nil {
			s.values[f.Name] = f.Init(get)
			continue
		}

		s.values[f.Name] = f.Default
	}

	return s
}

// A State is an instance of a state type.
type State struct {
	typ    *Type
	values map[string]interface{}
}

// Type returns the state type that produced this instance.
func (s *State) Type() *Type { return s.typ }

// Get returns the value of a field.
func (s *State) Get(name string) interface{} {
	s.mustHaveField(name)
	return s.values[name]
}

// Set replaces the value of a field.
func (s *State) Set(name string, v interface{}) {
	s.mustHaveField(name)
	s.values[name] = v
}

func (s *State) mustHaveField(name string) {
	if !s.typ.HasField(name) {
		panic(fmt.Sprintf("state type %s has no field %q", s.typ.id, name))
	}
}

// Serialize returns the field-to-value mapping of the state.
func (s *State) Serialize() map[string]interface{} {
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}

	return out
}

// Restore replaces field values from a serialized mapping. Unknown fields
// are rejected.
func (s *State) Restore(values map[string]interface{}) error {
	for name := range values {
		if !s.typ.HasField(name) {
			return fmt.Errorf("state type %s has no field %q", s.typ.id, name)
		}
	}

	for name, v := range values {
		s.values[name] = v
	}

	return nil
}
