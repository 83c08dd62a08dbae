package field

// Type is the closed enumeration of input kinds a form definition may use.
// Anything outside this set is clamped to TypeText during normalization.
type Type string

const (
	TypeEmail    Type = "email"
	TypeText     Type = "text"
	TypeTextarea Type = "textarea"
	TypeCheckbox Type = "checkbox"
	TypeSelect   Type = "select"
	TypeHidden   Type = "hidden"
)

// Option is one selectable entry of a select field. Order is significant and
// preserved from the authored definition.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Definition models a single form field after normalization. Key doubles as
// the HTML input name and the provider mapping key; MergeTag optionally
// overrides key-based provider mapping.
type Definition struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Type        Type     `json:"type"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	Default     string   `json:"default,omitempty"`
	Options     []Option `json:"options,omitempty"`
	MergeTag    string   `json:"merge_tag,omitempty"`
}

// OptionValues returns the declared option values in order.
func (d Definition) OptionValues() []string {
	if len(d.Options) == 0 {
		return nil
	}
	values := make([]string, 0, len(d.Options))
	for _, opt := range d.Options {
		values = append(values, opt.Value)
	}
	return values
}

// HasOption reports whether value is one of the declared option values.
func (d Definition) HasOption(value string) bool {
	for _, opt := range d.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
