package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseCondition decodes a single tree node. Objects with a "rules" key are
// groups; any other object is a rule.
func ParseCondition(data []byte) (Condition, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, NewMalformedError("condition is not an object: %v", err)
	}
	if fields == nil {
		return nil, NewMalformedError("condition is null")
	}

	if _, ok := fields["rules"]; ok {
		g := &Group{}
		if err := g.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return g, nil
	}

	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, NewMalformedError("rule: %v", err)
	}
	return r, nil
}

// ParseGroup decodes a root group from JSON.
func ParseGroup(data []byte) (*Group, error) {
	g := &Group{}
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return g, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Group) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string            `json:"id"`
		Combinator Combinator        `json:"combinator"`
		Rules      []json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewMalformedError("group: %v", err)
	}

	rules := make([]Condition, 0, len(raw.Rules))
	for i, r := range raw.Rules {
		c, err := ParseCondition(r)
		if err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, c)
	}

	g.ID = raw.ID
	g.Combinator = raw.Combinator
	g.Rules = rules
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler by converting the node to JSON,
// so both encodings share one decoder.
func (g *Group) UnmarshalYAML(node *yaml.Node) error {
	var generic any
	if err := node.Decode(&generic); err != nil {
		return NewMalformedError("group: %v", err)
	}
	data, err := json.Marshal(generic)
	if err != nil {
		return NewMalformedError("group: %v", err)
	}
	return g.UnmarshalJSON(data)
}

// MarshalJSON implements json.Marshaler. Empty groups serialize their rules
// as [].
func (g *Group) MarshalJSON() ([]byte, error) {
	rules := g.Rules
	if rules == nil {
		rules = []Condition{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		ID         string      `json:"id,omitempty"`
		Combinator Combinator  `json:"combinator,omitempty"`
		Rules      []Condition `json:"rules"`
	}{g.ID, g.Combinator, rules})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
