// FILENAME: internal/filter/spec.go
package filter

// Spec is the declarative form of a filter stack, as read from a campaign
// file. Zero-valued fields add no predicate.
type Spec struct {
	Status      []int    `yaml:"status"`
	StatusNot   []int    `yaml:"status_not"`
	Interesting bool     `yaml:"interesting"`
	MinLength   *int     `yaml:"min_length"`
	MaxLength   *int     `yaml:"max_length"`
	Contains    []string `yaml:"contains"`
	Matches     string   `yaml:"matches"`
	IgnoreCase  bool     `yaml:"ignore_case"`
}

// Build turns the spec into predicates ordered outermost first, so that the
// cheap checks listed last run first under Stack.
func (s Spec) Build() ([]Predicate, error) {
	var preds []Predicate
	if s.Matches != "" {
		p, err := Matches(s.Matches, s.IgnoreCase)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(s.Contains) > 0 {
		preds = append(preds, Contains(s.Contains...))
	}
	if s.MinLength != nil || s.MaxLength != nil {
		preds = append(preds, LengthRange(Bounds{Min: s.MinLength, Max: s.MaxLength}))
	}
	if len(s.StatusNot) > 0 {
		preds = append(preds, StatusNot(s.StatusNot...))
	}
	if len(s.Status) > 0 {
		preds = append(preds, Status(s.Status...))
	}
	if s.Interesting {
		preds = append(preds, Interesting())
	}
	return preds, nil
}

// Empty reports whether the spec adds no predicate.
func (s Spec) Empty() bool {
	return len(s.Status) == 0 && len(s.StatusNot) == 0 && !s.Interesting &&
		s.MinLength == nil && s.MaxLength == nil && len(s.Contains) == 0 && s.Matches == ""
}
