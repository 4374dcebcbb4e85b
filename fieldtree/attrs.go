package fieldtree

import "github.com/mbolis/quick-fields/model"

var defaultAttrs = map[model.FieldType]map[string]model.Attr{
	model.TypeInputbox: {
		"min_len":          {Type: "int", Value: -1},
		"max_len":          {Type: "int", Value: 4096},
		"regexp":           {Type: "unicode", Value: ""},
		"input_validation": {Type: "unicode", Value: "none"},
	},
	model.TypeTextarea: {
		"min_len": {Type: "int", Value: -1},
		"max_len": {Type: "int", Value: 4096},
		"regexp":  {Type: "unicode", Value: ""},
	},
	model.TypeCheckbox: {
		"min_selected": {Type: "int", Value: 0},
		"max_selected": {Type: "int", Value: 0},
	},
	model.TypeSelectbox: {
		"display_as_radio": {Type: "bool", Value: false},
	},
	model.TypeFieldgroup: {
		"min_entries": {Type: "int", Value: 1},
		"max_entries": {Type: "int", Value: 1},
	},
	model.TypeDate: {
		"min_date": {Type: "date", Value: ""},
		"max_date": {Type: "date", Value: ""},
	},
	model.TypeDaterange: {
		"min_date": {Type: "date", Value: ""},
		"max_date": {Type: "date", Value: ""},
	},
	model.TypeMap: {
		"topojson": {Type: "unicode", Value: ""},
	},
	model.TypeTOS: {
		"text":           {Type: "localized", Value: ""},
		"checkbox_label": {Type: "localized", Value: ""},
	},
}

// DefaultAttrs returns a fresh copy of the default attribute set of t.
// Types without configurable attributes get an empty set.
func DefaultAttrs(t model.FieldType) map[string]model.Attr {
	attrs := map[string]model.Attr{}
	for name, a := range defaultAttrs[t] {
		attrs[name] = a
	}
	return attrs
}

// AttrsTable returns the default attribute set of every type.
func AttrsTable() map[model.FieldType]map[string]model.Attr {
	table := make(map[model.FieldType]map[string]model.Attr, len(model.FieldTypes))
	for _, t := range model.FieldTypes {
		table[t] = DefaultAttrs(t)
	}
	return table
}

// NewField returns a bare unsaved question under parentID.
func NewField(label, parentID string) *model.Field {
	return &model.Field{
		ParentID:           parentID,
		Instance:           model.InstanceQuestion,
		Label:              label,
		Attrs:              map[string]model.Attr{},
		Options:            []*model.Option{},
		TriggeredByOptions: []model.Trigger{},
		Children:           []*model.Field{},
	}
}

// NewFieldTemplate returns a bare unsaved template, nested under parentID
// when that is not empty.
func NewFieldTemplate(parentID string) *model.Field {
	f := NewField("", parentID)
	f.Instance = model.InstanceTemplate
	return f
}

// NewOption returns a zeroed option.
func NewOption() *model.Option {
	return &model.Option{
		TriggerReceiver: []string{},
	}
}
