package ir

// ModelDefinition is a named, ordered collection of fields. It is immutable
// once added to a Registry.
type ModelDefinition struct {
	Name   string
	Doc    string
	Fields []FieldDefinition
}

// FieldDefinition is a single model property. Required is always the
// negation of IsOptional(Type).
type FieldDefinition struct {
	Name        string
	Type        SemanticType
	Required    bool
	Constraints []Constraint
	Doc         string
}

// Field looks up a field by name.
func (m ModelDefinition) Field(name string) (FieldDefinition, bool) {
	for _, field := range m.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// FieldNames returns field names in declaration order.
func (m ModelDefinition) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, field := range m.Fields {
		names[i] = field.Name
	}
	return names
}

// References returns the distinct model names referenced by the model's
// fields in declaration order.
func (m ModelDefinition) References() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, field := range m.Fields {
		for _, ref := range Refs(field.Type) {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

// UnmappedConstraint records a validation rule that could not be carried
// into the IR (stage "introspect") or into a target artifact (stage named
// after the target).
type UnmappedConstraint struct {
	Model      string `json:"model"`
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Stage      string `json:"stage,omitempty"`
	Reason     string `json:"reason,omitempty"`
}
