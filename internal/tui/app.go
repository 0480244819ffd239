package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rondalog/rondalog/internal/model"
)

type viewState int

const (
	inputView viewState = iota
	loadingView
	reviewView
	editView
	confirmationView
)

// Processor turns a raw report into a draft. *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, raw model.RawReport, catalog model.Catalog) (*model.DraftRecord, error)
}

// Saver persists an accepted draft. *store.DB satisfies it.
type Saver interface {
	InsertDraft(rec *model.DraftRecord) error
}

type Result struct {
	Skipped bool
	Draft   *model.DraftRecord
}

type processedMsg struct {
	draft *model.DraftRecord
	err   error
}

type savedMsg struct {
	err error
}

type App struct {
	state   viewState
	input   inputModel
	spinner spinner.Model
	review  draftModel
	edit    editModel
	result  *Result
	errMsg  string

	processor Processor
	saver     Saver
	catalog   model.Catalog
	source    model.Source
	timeout   time.Duration
}

func NewApp(processor Processor, saver Saver, catalog model.Catalog, shiftInfo, prefill string) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		state:     inputView,
		input:     newInputModel(shiftInfo, prefill),
		spinner:   s,
		processor: processor,
		saver:     saver,
		catalog:   catalog,
		source:    model.SourceManual,
		timeout:   60 * time.Second,
	}
}

// WithDraft opens the app on an already processed draft. Retry goes back to
// the input prefilled with the draft's raw text.
func (a *App) WithDraft(d *model.DraftRecord) *App {
	a.review = newDraftModel(d, a.catalog)
	a.source = d.Source
	a.input = newInputModel(a.input.shiftInfo, d.RawText)
	a.state = reviewView
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.textarea.Focus(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsMsg, ok := msg.(tea.WindowSizeMsg); ok {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(wsMsg)
		return a, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.result = &Result{Skipped: true}
			return a, tea.Quit
		}
	case processedMsg:
		return a.handleProcessed(msg)
	case savedMsg:
		return a.handleSaved(msg)
	}

	switch a.state {
	case inputView:
		return a.updateInput(msg)
	case loadingView:
		return a.updateLoading(msg)
	case reviewView:
		return a.updateReview(msg)
	case editView:
		return a.updateEdit(msg)
	case confirmationView:
		return a.updateConfirmation(msg)
	}

	return a, nil
}

func (a *App) View() string {
	switch a.state {
	case inputView:
		return a.input.View()
	case loadingView:
		return a.spinner.View() + " Correcting and extracting..."
	case reviewView:
		return a.review.View()
	case editView:
		return a.edit.View()
	case confirmationView:
		if a.errMsg != "" {
			return failureStyle.Render("Error: ") + a.errMsg + "\n\n" + keyHintStyle.Render("Press any key to exit")
		}
		return savedStyle.Render("Draft saved!") + "\n\n" + keyHintStyle.Render("Press any key to exit")
	}
	return ""
}

func (a *App) GetResult() *Result {
	return a.result
}

func (a *App) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+s":
			if a.input.Value() != "" {
				a.state = loadingView
				return a, tea.Batch(a.spinner.Tick, a.process(a.input.Value(), a.input.wantEmail))
			}
			return a, nil
		case "ctrl+e":
			a.input.wantEmail = !a.input.wantEmail
			return a, nil
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateLoading(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.spinner, cmd = a.spinner.Update(msg)
	return a, cmd
}

func (a *App) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "a":
			return a, a.save(a.review.draft)
		case "e":
			a.state = editView
			a.edit = newEditModel(a.review.draft, a.catalog)
			return a, nil
		case "r":
			a.state = inputView
			newInput := newInputModel(a.input.shiftInfo, a.input.Value())
			newInput.wantEmail = a.input.wantEmail
			newInput, _ = newInput.Update(tea.WindowSizeMsg{Width: a.input.width, Height: a.input.height})
			a.input = newInput
			return a, a.input.textarea.Focus()
		case "s":
			a.result = &Result{Skipped: true}
			return a, tea.Quit
		}
	}
	return a, nil
}

func (a *App) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "esc" && !a.edit.editing {
			a.review = newDraftModel(a.edit.draft, a.catalog)
			a.state = reviewView
			return a, nil
		}
	}

	var cmd tea.Cmd
	a.edit, cmd = a.edit.Update(msg)
	return a, cmd
}

func (a *App) updateConfirmation(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleProcessed(msg processedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = confirmationView
		a.errMsg = msg.err.Error()
		return a, nil
	}

	a.review = newDraftModel(msg.draft, a.catalog)
	a.state = reviewView
	return a, nil
}

func (a *App) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = confirmationView
		a.errMsg = msg.err.Error()
		return a, nil
	}

	a.result = &Result{Draft: a.review.draft}
	a.state = confirmationView
	return a, nil
}

func (a *App) process(text string, wantEmail bool) tea.Cmd {
	raw := model.RawReport{Text: text, Source: a.source, WantsEmailVariant: wantEmail}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		draft, err := a.processor.Process(ctx, raw, a.catalog)
		return processedMsg{draft: draft, err: err}
	}
}

func (a *App) save(d *model.DraftRecord) tea.Cmd {
	return func() tea.Msg {
		if a.saver == nil {
			return savedMsg{}
		}
		return savedMsg{err: a.saver.InsertDraft(d)}
	}
}
