package editor

// Panels is the visibility state of the editor affordances. The two
// add-question panels exclude each other; the others are independent.
type Panels struct {
	Editing                    bool
	AddingQuestion             bool
	AddingQuestionFromTemplate bool
	AddingTrigger              bool
}

func (e *Editor) Panels() Panels {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.panels
}

func (e *Editor) ToggleEditing() Panels {
	return e.togglePanels(func(p *Panels) {
		p.Editing = !p.Editing
	})
}

func (e *Editor) ToggleAddTrigger() Panels {
	return e.togglePanels(func(p *Panels) {
		p.AddingTrigger = !p.AddingTrigger
	})
}

func (e *Editor) ToggleAddQuestion() Panels {
	return e.togglePanels(func(p *Panels) {
		p.AddingQuestion = !p.AddingQuestion
		p.AddingQuestionFromTemplate = false
	})
}

func (e *Editor) ToggleAddQuestionFromTemplate() Panels {
	return e.togglePanels(func(p *Panels) {
		p.AddingQuestionFromTemplate = !p.AddingQuestionFromTemplate
		p.AddingQuestion = false
	})
}

func (e *Editor) togglePanels(fn func(*Panels)) Panels {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.panels)
	return e.panels
}
