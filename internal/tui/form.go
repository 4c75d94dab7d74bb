// Package tui implements the add-transaction form: a bubbletea model that
// edits a draft, resolves exchange rates as the currency changes, and runs
// the submission pipeline without blocking the UI.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ledgerline/ledgerline/internal/cli"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/rates"
	"github.com/ledgerline/ledgerline/internal/report"
)

// Submitter runs the submission pipeline for a draft.
type Submitter interface {
	Submit(ctx context.Context, draft *model.TransactionDraft) model.SubmissionOutcome
}

// Saver receives debounced draft snapshots while the user types.
type Saver interface {
	Save(draft model.TransactionDraft)
	Flush()
}

// State represents the current state of the form.
type State int

// Form states. There is no separate failure state: failures land back in
// StateEditing with the banner set and the draft intact.
const (
	StateEditing State = iota
	StateSubmitting
	StateSuccess
)

// Form field positions.
const (
	idxClient = iota
	idxDate
	idxAmount
	idxCurrency
	idxCategory
	idxMethod
	idxRate
	idxPSP
	idxCompany
	idxNotes
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Client",
	"Date (YYYY-MM-DD)",
	"Amount",
	"Currency (LOCAL/USD/EUR)",
	"Category (WITHDRAW/DEPOSIT)",
	"Payment method",
	"Exchange rate",
	"PSP",
	"Company",
	"Notes",
}

// Config wires the form's collaborators.
type Config struct {
	Submitter Submitter
	Resolver  rates.Resolver
	Saver     Saver
	Draft     *model.TransactionDraft
}

// Model holds the form state.
type Model struct {
	ctx       context.Context
	cfg       Config
	inputs    [fieldCount]textinput.Model
	focus     int
	state     State
	spin      spinner.Model
	banner    string
	rateNote  string
	createdID int64
	quitting  bool
}

// NewModel creates the form, rehydrating any previously autosaved draft.
func NewModel(ctx context.Context, cfg Config) Model {
	m := Model{
		ctx:  ctx,
		cfg:  cfg,
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 128
		m.inputs[i] = in
	}
	m.inputs[idxNotes].CharLimit = 512

	if cfg.Draft != nil {
		m.loadDraft(cfg.Draft)
	}
	m.inputs[idxClient].Focus()
	return m
}

func (m *Model) loadDraft(d *model.TransactionDraft) {
	m.inputs[idxClient].SetValue(d.ClientName)
	m.inputs[idxDate].SetValue(d.Date)
	m.inputs[idxAmount].SetValue(d.Amount)
	m.inputs[idxCurrency].SetValue(string(d.Currency))
	m.inputs[idxCategory].SetValue(string(d.Category))
	m.inputs[idxMethod].SetValue(d.PaymentMethod)
	m.inputs[idxRate].SetValue(d.Rate())
	m.inputs[idxPSP].SetValue(d.PSP)
	m.inputs[idxCompany].SetValue(d.Company)
	m.inputs[idxNotes].SetValue(d.Notes)
}

// Draft assembles the current form values into a draft.
func (m *Model) Draft() model.TransactionDraft {
	d := model.TransactionDraft{
		ClientName:    strings.TrimSpace(m.inputs[idxClient].Value()),
		Date:          strings.TrimSpace(m.inputs[idxDate].Value()),
		Amount:        strings.TrimSpace(m.inputs[idxAmount].Value()),
		Currency:      model.Currency(strings.ToUpper(strings.TrimSpace(m.inputs[idxCurrency].Value()))),
		Category:      model.Category(strings.ToUpper(strings.TrimSpace(m.inputs[idxCategory].Value()))),
		PaymentMethod: strings.TrimSpace(m.inputs[idxMethod].Value()),
		PSP:           strings.TrimSpace(m.inputs[idxPSP].Value()),
		Company:       strings.TrimSpace(m.inputs[idxCompany].Value()),
		Notes:         strings.TrimSpace(m.inputs[idxNotes].Value()),
	}
	rate := strings.TrimSpace(m.inputs[idxRate].Value())
	switch d.Currency {
	case model.CurrencyUSD:
		d.USDRate = rate
	case model.CurrencyEUR:
		d.EURRate = rate
	}
	return d
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case rateResolvedMsg:
		// A stale quote for a currency the user moved away from is dropped.
		d := m.Draft()
		if m.state == StateEditing && d.Currency == msg.currency {
			m.inputs[idxRate].SetValue(msg.quote.Rate.String())
			if msg.quote.Status == model.RateUnavailable {
				m.rateNote = "rate unavailable, enter one manually"
			} else {
				m.rateNote = ""
			}
			m.save()
		}
		return m, nil

	case submitFinishedMsg:
		ui := report.Render(msg.outcome)
		if ui.Kind == report.ShowSuccess {
			m.state = StateSuccess
			m.createdID = ui.TransactionID
			return m, nil
		}
		m.state = StateEditing
		m.banner = ui.ErrorMessage
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.cfg.Saver != nil {
			m.cfg.Saver.Flush()
		}
		m.quitting = true
		return m, tea.Quit
	}

	if m.state == StateSubmitting {
		// Submit control is disabled while a run is in flight.
		return m, nil
	}
	if m.state == StateSuccess {
		if msg.String() == "enter" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "enter", "down":
		return m.moveFocus(1)
	case "shift+tab", "up":
		return m.moveFocus(-1)
	case "ctrl+s":
		return m.submit()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.save()
	return m, cmd
}

func (m Model) moveFocus(dir int) (tea.Model, tea.Cmd) {
	leaving := m.focus
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + dir + fieldCount) % fieldCount
	m.inputs[m.focus].Focus()

	// Leaving the currency or date field is the moment to look a rate up.
	if dir > 0 && (leaving == idxCurrency || leaving == idxDate) {
		if cmd := m.resolveRateCmd(); cmd != nil {
			return m, cmd
		}
	}
	return m, nil
}

// resolveRateCmd returns a command that resolves the exchange rate, or nil
// when no lookup is warranted. A hand-entered rate is never overwritten.
func (m *Model) resolveRateCmd() tea.Cmd {
	d := m.Draft()
	if m.cfg.Resolver == nil || !d.Currency.Foreign() || d.Date == "" {
		return nil
	}
	if strings.TrimSpace(m.inputs[idxRate].Value()) != "" {
		return nil
	}

	ctx := m.ctx
	resolver := m.cfg.Resolver
	currency := d.Currency
	date := d.Date
	return func() tea.Msg {
		return rateResolvedMsg{
			currency: currency,
			quote:    resolver.Resolve(ctx, currency, date),
		}
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.cfg.Submitter == nil {
		return m, nil
	}
	m.state = StateSubmitting
	m.banner = ""

	ctx := m.ctx
	submitter := m.cfg.Submitter
	draft := m.Draft()
	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		return submitFinishedMsg{outcome: submitter.Submit(ctx, &draft)}
	})
}

func (m *Model) save() {
	if m.cfg.Saver != nil {
		m.cfg.Saver.Save(m.Draft())
	}
}

var (
	labelStyle   = lipgloss.NewStyle().Width(28).Foreground(cli.SubtleColor)
	focusedLabel = lipgloss.NewStyle().Width(28).Bold(true).Foreground(cli.PrimaryColor)
)

// View renders the form.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.state == StateSuccess {
		body := fmt.Sprintf("Transaction recorded.\nID: %d\n\nPress enter to close.", m.createdID)
		if m.createdID == 0 {
			body = "Transaction recorded.\n\nPress enter to close."
		}
		return cli.RenderBox("Success", body) + "\n"
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Add transaction") + "\n")

	if m.banner != "" {
		b.WriteString(cli.FormatError(m.banner) + "\n\n")
	}

	d := m.Draft()
	for i := range m.inputs {
		if i == idxRate && !d.Currency.Foreign() {
			continue
		}
		label := labelStyle
		if i == m.focus {
			label = focusedLabel
		}
		b.WriteString(label.Render(fieldLabels[i]) + m.inputs[i].View() + "\n")
		if i == idxRate && m.rateNote != "" {
			b.WriteString(labelStyle.Render("") + cli.FormatWarning(m.rateNote) + "\n")
		}
	}

	b.WriteString("\n")
	if m.state == StateSubmitting {
		b.WriteString(m.spin.View() + " Submitting...\n")
	} else {
		b.WriteString(cli.SubtleStyle.Render("tab: next field • ctrl+s: submit • esc: quit") + "\n")
	}
	return b.String()
}
