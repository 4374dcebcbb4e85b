package model

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type FieldType string

const (
	TypeInputbox    FieldType = "inputbox"
	TypeTextarea    FieldType = "textarea"
	TypeCheckbox    FieldType = "checkbox"
	TypeSelectbox   FieldType = "selectbox"
	TypeMultichoice FieldType = "multichoice"
	TypeFieldgroup  FieldType = "fieldgroup"
	TypeFileupload  FieldType = "fileupload"
	TypeDate        FieldType = "date"
	TypeDaterange   FieldType = "daterange"
	TypeMap         FieldType = "map"
	TypeTOS         FieldType = "tos"
)

// FieldTypes lists every known field type, in declaration order.
var FieldTypes = []FieldType{
	TypeInputbox,
	TypeTextarea,
	TypeCheckbox,
	TypeSelectbox,
	TypeMultichoice,
	TypeFieldgroup,
	TypeFileupload,
	TypeDate,
	TypeDaterange,
	TypeMap,
	TypeTOS,
}

func (t FieldType) Valid() bool {
	for _, known := range FieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(s)
	if !t.Valid() {
		return "", errors.Errorf("unknown field type %q", s)
	}
	return t, nil
}

type Instance string

const (
	InstanceTemplate  Instance = "template"
	InstanceReference Instance = "reference"
	InstanceQuestion  Instance = "question"
)

func (i Instance) Valid() bool {
	switch i {
	case InstanceTemplate, InstanceReference, InstanceQuestion:
		return true
	}
	return false
}

// WhistleblowerIdentityID is the id of the built-in identity template.
const WhistleblowerIdentityID = "whistleblower_identity"

type Field struct {
	ID                 string          `json:"id"`
	ParentID           string          `json:"parent_id"`
	TemplateID         string          `json:"template_id,omitempty"`
	Type               FieldType       `json:"type"`
	Instance           Instance        `json:"instance"`
	Label              string          `json:"label"`
	Hint1              string          `json:"hint1"`
	Hint2              string          `json:"hint2"`
	Required           bool            `json:"required"`
	Preview            bool            `json:"preview"`
	StatsEnabled       bool            `json:"stats_enabled"`
	MultiEntry         bool            `json:"multi_entry"`
	Attrs              map[string]Attr `json:"attrs"`
	Options            []*Option       `json:"options"`
	TriggeredByOptions []Trigger       `json:"triggered_by_options"`
	TriggeredByScore   int             `json:"triggered_by_score"`
	Children           []*Field        `json:"children"`
	Y                  int             `json:"y"`
}

// Attr is one type-specific configuration entry, e.g. "max_len".
type Attr struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type ScoreType int

const (
	ScoreNone ScoreType = iota
	ScoreAddition
	ScoreMultiplication
)

type Option struct {
	ID                string    `json:"id"`
	Label             string    `json:"label"`
	Hint1             string    `json:"hint1"`
	Hint2             string    `json:"hint2"`
	BlockSubmission   bool      `json:"block_submission"`
	ScorePoints       int       `json:"score_points"`
	ScoreType         ScoreType `json:"score_type"`
	TriggerReceiver   []string  `json:"trigger_receiver"`
	PresentationOrder int       `json:"presentation_order"`
}

// Trigger makes the owning field visible when Option of Field is selected.
type Trigger struct {
	Field      string `json:"field"`
	Option     string `json:"option"`
	Sufficient bool   `json:"sufficient"`
}

// Clone returns a deep copy of f, children included.
func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	c := *f
	if f.Attrs != nil {
		c.Attrs = make(map[string]Attr, len(f.Attrs))
		for k, v := range f.Attrs {
			c.Attrs[k] = v
		}
	}
	c.Options = make([]*Option, len(f.Options))
	for i, o := range f.Options {
		c.Options[i] = o.Clone()
	}
	c.TriggeredByOptions = append([]Trigger{}, f.TriggeredByOptions...)
	c.Children = make([]*Field, len(f.Children))
	for i, child := range f.Children {
		c.Children[i] = child.Clone()
	}
	return &c
}

func (o *Option) Clone() *Option {
	c := *o
	c.TriggerReceiver = append([]string{}, o.TriggerReceiver...)
	return &c
}

// MarshalAttrs encodes attrs for storage.
func MarshalAttrs(attrs map[string]Attr) (string, error) {
	if attrs == nil {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", errors.Wrap(err, "marshal attrs")
	}
	return string(b), nil
}

func UnmarshalAttrs(s string) (map[string]Attr, error) {
	attrs := map[string]Attr{}
	if s == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, errors.Wrap(err, "unmarshal attrs")
	}
	return attrs, nil
}
