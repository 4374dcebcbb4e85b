package resource

import "github.com/mbolis/quick-fields/model"

const (
	FieldsPath         = "/api/admin/fields"
	FieldTemplatesPath = "/api/admin/fieldtemplates"
)

func Fields(c *Client) *Resource[model.Field] {
	return NewResource[model.Field](c, FieldsPath)
}

func FieldTemplates(c *Client) *Resource[model.Field] {
	return NewResource[model.Field](c, FieldTemplatesPath)
}
