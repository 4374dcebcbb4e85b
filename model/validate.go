package model

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Validate reports every structural problem of f, or nil.
// Children are not descended into: each field is saved on its own.
func (f *Field) Validate() error {
	var result *multierror.Error

	if !f.Instance.Valid() {
		result = multierror.Append(result, errors.Errorf("instance: invalid value %q", f.Instance))
	}

	switch f.Instance {
	case InstanceReference:
		if f.TemplateID == "" {
			result = multierror.Append(result, errors.New("template_id: required for reference fields"))
		}
	default:
		if !f.Type.Valid() {
			result = multierror.Append(result, errors.Errorf("type: invalid value %q", f.Type))
		}
		if f.TemplateID != "" {
			result = multierror.Append(result, errors.New("template_id: only allowed on reference fields"))
		}
	}

	if f.ParentID != "" && f.ParentID == f.ID {
		result = multierror.Append(result, errors.New("parent_id: a field cannot contain itself"))
	}

	for i, o := range f.Options {
		if o == nil {
			result = multierror.Append(result, errors.Errorf("options[%d]: missing", i))
			continue
		}
		if o.ScoreType < ScoreNone || o.ScoreType > ScoreMultiplication {
			result = multierror.Append(result, errors.Errorf("options[%d].score_type: invalid value %d", i, o.ScoreType))
		}
	}

	for i, t := range f.TriggeredByOptions {
		if t.Field == "" || t.Option == "" {
			result = multierror.Append(result, errors.Errorf("triggered_by_options[%d]: field and option are required", i))
		}
		if t.Field != "" && t.Field == f.ID {
			result = multierror.Append(result, errors.Errorf("triggered_by_options[%d]: a field cannot trigger itself", i))
		}
	}

	return result.ErrorOrNil()
}

// Problems flattens a Validate error into its messages.
func Problems(err error) []string {
	if err == nil {
		return nil
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
