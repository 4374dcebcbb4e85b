package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-fields/model"
)

var ErrConflict = errors.New("conflict")

// InvalidError reports why a field was refused.
type InvalidError struct {
	Problems []string
}

func (e *InvalidError) Error() string {
	return "invalid field: " + strings.Join(e.Problems, "; ")
}

func invalid(format string, args ...any) error {
	return &InvalidError{Problems: []string{fmt.Sprintf(format, args...)}}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Fields stores questionnaire fields along with their options and triggers.
type Fields struct {
	db *sql.DB
}

func NewFields(db *sql.DB) *Fields {
	return &Fields{db}
}

const fieldColumns = `
	id, parent_id, template_id, instance, type, label, hint1, hint2,
	required, preview, stats_enabled, multi_entry, triggered_by_score, attrs, y`

// Get loads the field id with its whole subtree. References come back
// resolved against their template.
func (r *Fields) Get(ctx context.Context, id string) (*model.Field, error) {
	return load(ctx, r.db, id, map[string]bool{})
}

// List loads the fields directly under parentID, or the top level ones
// when parentID is empty. templates selects template fields or the others.
func (r *Fields) List(ctx context.Context, parentID string, templates bool) ([]*model.Field, error) {
	query := `SELECT id FROM field WHERE `
	args := []any{}
	if parentID == "" {
		query += `parent_id IS NULL`
	} else {
		query += `parent_id = ?`
		args = append(args, parentID)
	}
	if templates {
		query += ` AND instance = ?`
	} else {
		query += ` AND instance <> ?`
	}
	args = append(args, model.InstanceTemplate)

	ids, err := queryIDs(ctx, r.db, query+` ORDER BY y, rowid`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_fields")
	}

	fields := make([]*model.Field, 0, len(ids))
	for _, id := range ids {
		f, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Create stores f as a new field. Every id it carries, options included, is
// replaced by a fresh one.
func (r *Fields) Create(ctx context.Context, f *model.Field) (*model.Field, error) {
	f = f.Clone()
	f.ID = uuid.NewString()
	if err := f.Validate(); err != nil {
		return nil, &InvalidError{Problems: model.Problems(err)}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	if err = checkParent(ctx, tx, f); err != nil {
		return nil, err
	}
	if f.Instance == model.InstanceReference {
		if err = checkTemplate(ctx, tx, f.TemplateID); err != nil {
			return nil, err
		}
		f.Options = nil
	}

	attrs, err := model.MarshalAttrs(f.Attrs)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO field (`+fieldColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, nullable(f.ParentID), nullable(f.TemplateID), f.Instance, f.Type, f.Label, f.Hint1, f.Hint2,
		f.Required, f.Preview, f.StatsEnabled, f.MultiEntry, f.TriggeredByScore, attrs, f.Y,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.insert_field")
	}

	for _, o := range f.Options {
		o.ID = ""
	}
	if err = syncOptions(ctx, tx, f.ID, f.Options); err != nil {
		return nil, err
	}
	if err = writeTriggers(ctx, tx, f.ID, f.TriggeredByOptions); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "db.insert_field.commit")
	}
	return r.Get(ctx, f.ID)
}

// Update replaces the field id with f. Options missing from f are deleted
// along with the triggers pointing at them; new options get an id. A
// reference only updates its placement, its requiredness and its triggers.
func (r *Fields) Update(ctx context.Context, id string, f *model.Field) (*model.Field, error) {
	f = f.Clone()
	f.ID = id
	if err := f.Validate(); err != nil {
		return nil, &InvalidError{Problems: model.Problems(err)}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	var instance model.Instance
	var templateID sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT instance, template_id FROM field WHERE id = ?`, id).Scan(&instance, &templateID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db.update_field.get")
	}
	if instance != f.Instance {
		return nil, invalid("instance: cannot change from %q to %q", instance, f.Instance)
	}
	if err = checkParent(ctx, tx, f); err != nil {
		return nil, err
	}

	if f.Instance == model.InstanceReference {
		if f.TemplateID != templateID.String {
			return nil, invalid("template_id: cannot change")
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE field
			SET parent_id = ?, required = ?, triggered_by_score = ?, y = ?
			WHERE id = ?`,
			nullable(f.ParentID), f.Required, f.TriggeredByScore, f.Y, id,
		)
		if err != nil {
			return nil, errors.Wrap(err, "db.update_field")
		}
	} else {
		attrs, err := model.MarshalAttrs(f.Attrs)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE field
			SET parent_id = ?, type = ?, label = ?, hint1 = ?, hint2 = ?,
				required = ?, preview = ?, stats_enabled = ?, multi_entry = ?,
				triggered_by_score = ?, attrs = ?, y = ?
			WHERE id = ?`,
			nullable(f.ParentID), f.Type, f.Label, f.Hint1, f.Hint2,
			f.Required, f.Preview, f.StatsEnabled, f.MultiEntry,
			f.TriggeredByScore, attrs, f.Y, id,
		)
		if err != nil {
			return nil, errors.Wrap(err, "db.update_field")
		}
		if err = syncOptions(ctx, tx, id, f.Options); err != nil {
			return nil, err
		}
	}

	if err = writeTriggers(ctx, tx, id, f.TriggeredByOptions); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "db.update_field.commit")
	}
	return r.Get(ctx, id)
}

// Delete removes the field id and its subtree. Triggers pointing at the
// removed options go with them. A template still referenced is a conflict.
func (r *Fields) Delete(ctx context.Context, id string) error {
	var refs int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM field WHERE template_id = ?`, id).Scan(&refs)
	if err != nil {
		return errors.Wrap(err, "db.delete_field.refs")
	}
	if refs > 0 {
		return errors.Wrapf(ErrConflict, "template %s is referenced by %d fields", id, refs)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM field WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return errors.Wrapf(ErrConflict, "a template under %s is still referenced", id)
	}
	if err != nil {
		return errors.Wrap(err, "db.delete_field")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete_field.verify")
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}

func load(ctx context.Context, q querier, id string, resolving map[string]bool) (*model.Field, error) {
	f, err := scanField(q.QueryRowContext(ctx, `SELECT `+fieldColumns+` FROM field WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db.get_field")
	}

	if f.Options, err = loadOptions(ctx, q, id); err != nil {
		return nil, err
	}
	if f.TriggeredByOptions, err = loadTriggers(ctx, q, id); err != nil {
		return nil, err
	}

	childIDs, err := queryIDs(ctx, q, `SELECT id FROM field WHERE parent_id = ? ORDER BY y, rowid`, id)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_field.children")
	}
	f.Children = make([]*model.Field, 0, len(childIDs))
	for _, childID := range childIDs {
		child, err := load(ctx, q, childID, resolving)
		if err != nil {
			return nil, err
		}
		f.Children = append(f.Children, child)
	}

	if f.Instance == model.InstanceReference && !resolving[f.TemplateID] {
		resolving[f.TemplateID] = true
		tpl, err := load(ctx, q, f.TemplateID, resolving)
		delete(resolving, f.TemplateID)
		if err != nil {
			return nil, errors.Wrapf(err, "db.get_field.template %s", f.TemplateID)
		}
		resolve(f, tpl)
	}
	return f, nil
}

// resolve copies what a reference renders as from its template.
func resolve(ref, tpl *model.Field) {
	ref.Type = tpl.Type
	ref.Label = tpl.Label
	ref.Hint1 = tpl.Hint1
	ref.Hint2 = tpl.Hint2
	ref.Preview = tpl.Preview
	ref.StatsEnabled = tpl.StatsEnabled
	ref.MultiEntry = tpl.MultiEntry
	ref.Attrs = tpl.Attrs
	ref.Options = tpl.Options
	ref.Children = tpl.Children
}

type scanner interface {
	Scan(dest ...any) error
}

func scanField(row scanner) (*model.Field, error) {
	f := model.Field{}
	var parentID, templateID sql.NullString
	var attrs string
	err := row.Scan(
		&f.ID, &parentID, &templateID, &f.Instance, &f.Type, &f.Label, &f.Hint1, &f.Hint2,
		&f.Required, &f.Preview, &f.StatsEnabled, &f.MultiEntry, &f.TriggeredByScore, &attrs, &f.Y,
	)
	if err != nil {
		return nil, err
	}
	f.ParentID = parentID.String
	f.TemplateID = templateID.String
	f.Attrs, err = model.UnmarshalAttrs(attrs)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func loadOptions(ctx context.Context, q querier, fieldID string) ([]*model.Option, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, label, hint1, hint2, block_submission, score_points, score_type, trigger_receiver, presentation_order
		FROM field_option
		WHERE field_id = ?
		ORDER BY presentation_order, rowid`,
		fieldID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_field.options")
	}
	defer rows.Close()

	options := []*model.Option{}
	for rows.Next() {
		o := &model.Option{}
		var receivers string
		err = rows.Scan(&o.ID, &o.Label, &o.Hint1, &o.Hint2, &o.BlockSubmission, &o.ScorePoints, &o.ScoreType, &receivers, &o.PresentationOrder)
		if err != nil {
			return nil, errors.Wrap(err, "db.get_field.options.scan")
		}
		if err = json.Unmarshal([]byte(receivers), &o.TriggerReceiver); err != nil {
			return nil, errors.Wrap(err, "db.get_field.options.parse_receivers")
		}
		if o.TriggerReceiver == nil {
			o.TriggerReceiver = []string{}
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

func loadTriggers(ctx context.Context, q querier, fieldID string) ([]model.Trigger, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT source_field_id, option_id, sufficient
		FROM field_trigger
		WHERE field_id = ?
		ORDER BY rowid`,
		fieldID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_field.triggers")
	}
	defer rows.Close()

	triggers := []model.Trigger{}
	for rows.Next() {
		t := model.Trigger{}
		if err = rows.Scan(&t.Field, &t.Option, &t.Sufficient); err != nil {
			return nil, errors.Wrap(err, "db.get_field.triggers.scan")
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

// syncOptions makes options the exact option list of fieldID. Options
// without a known id are inserted with a fresh one.
func syncOptions(ctx context.Context, q querier, fieldID string, options []*model.Option) error {
	existing, err := queryIDs(ctx, q, `SELECT id FROM field_option WHERE field_id = ?`, fieldID)
	if err != nil {
		return errors.Wrap(err, "db.sync_options.get")
	}
	stale := make(map[string]bool, len(existing))
	for _, id := range existing {
		stale[id] = true
	}

	for _, o := range options {
		receivers, err := json.Marshal(nonNil(o.TriggerReceiver))
		if err != nil {
			return errors.Wrap(err, "db.sync_options.receivers")
		}

		if stale[o.ID] {
			delete(stale, o.ID)
			_, err = q.ExecContext(ctx, `
				UPDATE field_option
				SET label = ?, hint1 = ?, hint2 = ?, block_submission = ?, score_points = ?,
					score_type = ?, trigger_receiver = ?, presentation_order = ?
				WHERE id = ?`,
				o.Label, o.Hint1, o.Hint2, o.BlockSubmission, o.ScorePoints,
				o.ScoreType, string(receivers), o.PresentationOrder, o.ID,
			)
			if err != nil {
				return errors.Wrap(err, "db.sync_options.update")
			}
			continue
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO field_option (
				id, field_id, label, hint1, hint2, block_submission, score_points,
				score_type, trigger_receiver, presentation_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), fieldID, o.Label, o.Hint1, o.Hint2, o.BlockSubmission, o.ScorePoints,
			o.ScoreType, string(receivers), o.PresentationOrder,
		)
		if err != nil {
			return errors.Wrap(err, "db.sync_options.insert")
		}
	}

	for id := range stale {
		if _, err := q.ExecContext(ctx, `DELETE FROM field_option WHERE id = ?`, id); err != nil {
			return errors.Wrap(err, "db.sync_options.delete")
		}
	}
	return nil
}

// writeTriggers replaces the triggers of fieldID. Each trigger must name an
// option of its source field, or of the template the source references.
func writeTriggers(ctx context.Context, q querier, fieldID string, triggers []model.Trigger) error {
	_, err := q.ExecContext(ctx, `DELETE FROM field_trigger WHERE field_id = ?`, fieldID)
	if err != nil {
		return errors.Wrap(err, "db.write_triggers.delete")
	}

	seen := map[string]bool{}
	for _, t := range triggers {
		if seen[t.Option] {
			continue
		}
		seen[t.Option] = true

		var owned bool
		err = q.QueryRowContext(ctx, `
			SELECT 1
			FROM field f
			INNER JOIN field_option o ON (o.field_id = f.id OR o.field_id = f.template_id)
			WHERE f.id = ?
				AND o.id = ?`,
			t.Field,
			t.Option,
		).Scan(&owned)
		if errors.Is(err, sql.ErrNoRows) {
			return invalid("triggered_by_options: field %q has no option %q", t.Field, t.Option)
		}
		if err != nil {
			return errors.Wrap(err, "db.write_triggers.check")
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO field_trigger (field_id, source_field_id, option_id, sufficient)
			VALUES (?, ?, ?, ?)`,
			fieldID, t.Field, t.Option, t.Sufficient,
		)
		if err != nil {
			return errors.Wrap(err, "db.write_triggers.insert")
		}
	}
	return nil
}

// checkParent verifies that the parent of f is a fieldgroup of the same
// family (template or not) and that it does not sit under f itself.
func checkParent(ctx context.Context, q querier, f *model.Field) error {
	if f.ParentID == "" {
		return nil
	}

	var typ model.FieldType
	var instance model.Instance
	err := q.QueryRowContext(ctx, `SELECT type, instance FROM field WHERE id = ?`, f.ParentID).Scan(&typ, &instance)
	if errors.Is(err, sql.ErrNoRows) {
		return invalid("parent_id: no field %q", f.ParentID)
	}
	if err != nil {
		return errors.Wrap(err, "db.check_parent")
	}
	if typ != model.TypeFieldgroup || instance == model.InstanceReference {
		return invalid("parent_id: %q is not a fieldgroup", f.ParentID)
	}
	if (instance == model.InstanceTemplate) != (f.Instance == model.InstanceTemplate) {
		return invalid("parent_id: templates and questions cannot be mixed")
	}

	var cyclic bool
	err = q.QueryRowContext(ctx, `
		WITH RECURSIVE ancestor (id, parent_id) AS (
			SELECT id, parent_id FROM field WHERE id = ?
			UNION ALL
			SELECT f.id, f.parent_id FROM field f INNER JOIN ancestor a ON (f.id = a.parent_id)
		)
		SELECT 1 FROM ancestor WHERE id = ?`,
		f.ParentID,
		f.ID,
	).Scan(&cyclic)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "db.check_parent.cycle")
	}
	if cyclic {
		return invalid("parent_id: a field cannot be moved under itself")
	}
	return nil
}

func checkTemplate(ctx context.Context, q querier, templateID string) error {
	var instance model.Instance
	err := q.QueryRowContext(ctx, `SELECT instance FROM field WHERE id = ?`, templateID).Scan(&instance)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && instance != model.InstanceTemplate) {
		return invalid("template_id: no template %q", templateID)
	}
	if err != nil {
		return errors.Wrap(err, "db.check_template")
	}
	return nil
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
