package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Param is a single named hyperparameter value.
type Param struct {
	Name  string
	Value any
}

// CandidateConfig identifies a model family plus a fixed set of
// hyperparameter values. It is immutable: accessors hand out copies.
type CandidateConfig struct {
	family string
	names  []string
	values map[string]any
}

// NewCandidateConfig builds a candidate. Params keep the given order for
// display; a repeated name keeps its last value.
func NewCandidateConfig(family string, params ...Param) CandidateConfig {
	c := CandidateConfig{
		family: family,
		values: make(map[string]any, len(params)),
	}
	for _, p := range params {
		if _, ok := c.values[p.Name]; !ok {
			c.names = append(c.names, p.Name)
		}
		c.values[p.Name] = p.Value
	}
	return c
}

// Family returns the model family name, e.g. "decision_tree".
func (c CandidateConfig) Family() string {
	return c.family
}

// Params returns a copy of the hyperparameters.
func (c CandidateConfig) Params() map[string]any {
	return maps.Clone(c.values)
}

// Param returns a single hyperparameter value.
func (c CandidateConfig) Param(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Names returns the hyperparameter names in declaration order.
func (c CandidateConfig) Names() []string {
	return slices.Clone(c.names)
}

// String renders the candidate as family(name=value, ...).
func (c CandidateConfig) String() string {
	parts := make([]string, 0, len(c.names))
	for _, n := range c.names {
		parts = append(parts, fmt.Sprintf("%s=%v", n, c.values[n]))
	}
	return fmt.Sprintf("%s(%s)", c.family, strings.Join(parts, ", "))
}

// Equal reports whether two candidates have the same family and values.
func (c CandidateConfig) Equal(other CandidateConfig) bool {
	if c.family != other.family || len(c.values) != len(other.values) {
		return false
	}
	for k, v := range c.values {
		ov, ok := other.values[k]
		if !ok || fmt.Sprint(v) != fmt.Sprint(ov) {
			return false
		}
	}
	return true
}

type candidateJSON struct {
	Family string         `json:"family"`
	Params map[string]any `json:"params,omitempty"`
	Order  []string       `json:"param_order,omitempty"`
}

func (c CandidateConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(candidateJSON{Family: c.family, Params: c.values, Order: c.names})
}

func (c *CandidateConfig) UnmarshalJSON(data []byte) error {
	var raw candidateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	order := raw.Order
	if len(order) != len(raw.Params) {
		order = slices.Sorted(maps.Keys(raw.Params))
	}
	params := make([]Param, 0, len(order))
	for _, n := range order {
		params = append(params, Param{Name: n, Value: raw.Params[n]})
	}
	*c = NewCandidateConfig(raw.Family, params...)
	return nil
}
