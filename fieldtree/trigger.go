package fieldtree

import "github.com/mbolis/quick-fields/model"

// Answers maps a field id to the ids of the options selected in it.
type Answers map[string][]string

func (a Answers) selected(fieldID, optionID string) bool {
	for _, v := range a[fieldID] {
		if v == optionID {
			return true
		}
	}
	return false
}

// IsFieldTriggered tells whether f is visible given the answers so far.
// A field with no trigger is always visible; a matched sufficient trigger
// is enough on its own, otherwise every trigger must match.
func IsFieldTriggered(parentEnabled bool, f *model.Field, answers Answers, score int) bool {
	if !parentEnabled {
		return false
	}
	if f.TriggeredByScore > score {
		return false
	}
	if len(f.TriggeredByOptions) == 0 {
		return true
	}

	matched := 0
	for _, tr := range f.TriggeredByOptions {
		if !answers.selected(tr.Field, tr.Option) {
			continue
		}
		if tr.Sufficient {
			return true
		}
		matched++
	}
	return matched == len(f.TriggeredByOptions)
}

type Evaluation struct {
	Score           int      `json:"score"`
	Enabled         []string `json:"enabled"`
	BlockSubmission bool     `json:"block_submission"`
	Receivers       []string `json:"trigger_receivers"`
}

// Evaluate computes visibility, score and submission blocking for answers.
// The score counts every selected option of the tree: additive points are
// summed, then multiplied by each multiplicative option selected.
// Blocking options and receivers only count in visible fields.
func (p *Parsed) Evaluate(answers Answers) Evaluation {
	ev := Evaluation{
		Score:     p.score(answers),
		Enabled:   []string{},
		Receivers: []string{},
	}
	p.evaluate(p.Root, true, answers, &ev)
	return ev
}

// score reads the answers of each field against its own options. A field
// id parsed more than once counts once.
func (p *Parsed) score(answers Answers) int {
	sum, factor := 0, 1
	counted := map[string]bool{}
	var visit func(n *Node)
	visit = func(n *Node) {
		if n.ID != "" && !counted[n.ID] {
			counted[n.ID] = true
			for _, o := range n.Options {
				if o.ID == "" || !answers.selected(n.ID, o.ID) {
					continue
				}
				switch o.ScoreType {
				case model.ScoreAddition:
					sum += o.ScorePoints
				case model.ScoreMultiplication:
					factor *= o.ScorePoints
				}
			}
		}
		for _, child := range n.Children {
			visit(child)
		}
	}
	visit(p.Root)
	return sum * factor
}

func (p *Parsed) evaluate(n *Node, parentEnabled bool, answers Answers, ev *Evaluation) {
	enabled := IsFieldTriggered(parentEnabled, n.Field, answers, ev.Score)
	if enabled {
		if n.ID != "" {
			ev.Enabled = append(ev.Enabled, n.ID)
		}
		for _, o := range n.Options {
			if o.ID == "" || !answers.selected(n.ID, o.ID) {
				continue
			}
			if o.BlockSubmission {
				ev.BlockSubmission = true
			}
			for _, r := range o.TriggerReceiver {
				if indexOf(ev.Receivers, r) < 0 {
					ev.Receivers = append(ev.Receivers, r)
				}
			}
		}
	}
	for _, child := range n.Children {
		p.evaluate(child, enabled, answers, ev)
	}
}
