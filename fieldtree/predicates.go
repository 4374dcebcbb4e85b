package fieldtree

import "github.com/mbolis/quick-fields/model"

// RenderGroup selects the shared editing widget of a field type.
type RenderGroup string

const (
	GroupInputboxOrTextarea  RenderGroup = "inputbox_or_textarea"
	GroupCheckboxOrSelectbox RenderGroup = "checkbox_or_selectbox"
)

type typeTraits struct {
	group       RenderGroup
	stats       bool
	preview     bool
	configAttrs bool
	options     bool
}

// One row per model.FieldType; TestTraitsCoverEveryType keeps it exhaustive.
var traits = map[model.FieldType]typeTraits{
	model.TypeInputbox:    {group: GroupInputboxOrTextarea, stats: false, preview: true, configAttrs: true, options: false},
	model.TypeTextarea:    {group: GroupInputboxOrTextarea, stats: false, preview: true, configAttrs: true, options: false},
	model.TypeCheckbox:    {group: GroupCheckboxOrSelectbox, stats: true, preview: true, configAttrs: true, options: true},
	model.TypeSelectbox:   {group: GroupCheckboxOrSelectbox, stats: true, preview: true, configAttrs: true, options: true},
	model.TypeMultichoice: {group: "multichoice", stats: true, preview: true, configAttrs: false, options: true},
	model.TypeFieldgroup:  {group: "fieldgroup", stats: false, preview: false, configAttrs: true, options: false},
	model.TypeFileupload:  {group: "fileupload", stats: true, preview: false, configAttrs: false, options: false},
	model.TypeDate:        {group: "date", stats: true, preview: true, configAttrs: true, options: false},
	model.TypeDaterange:   {group: "daterange", stats: true, preview: true, configAttrs: true, options: false},
	model.TypeMap:         {group: "map", stats: true, preview: true, configAttrs: true, options: false},
	model.TypeTOS:         {group: "tos", stats: true, preview: true, configAttrs: true, options: false},
}

// traitsOf returns the traits of an unknown type as those of a type with
// no dedicated group: eligible for stats and preview, nothing else.
func traitsOf(t model.FieldType) typeTraits {
	if tr, ok := traits[t]; ok {
		return tr
	}
	return typeTraits{group: RenderGroup(t), stats: true, preview: true}
}

func ClassifyType(t model.FieldType) RenderGroup {
	return traitsOf(t).group
}

// IsStatsEligible tells whether a field may be marked as subject to statistics.
func IsStatsEligible(f *model.Field) bool {
	return traitsOf(f.Type).stats
}

func IsPreviewEligible(f *model.Field) bool {
	return traitsOf(f.Type).preview
}

func HasConfigurableAttrs(f *model.Field) bool {
	if traitsOf(f.Type).configAttrs {
		return true
	}
	return f.Instance == model.InstanceTemplate && f.ID == model.WhistleblowerIdentityID
}

func HasOptionsEditor(f *model.Field) bool {
	return traitsOf(f.Type).options
}
