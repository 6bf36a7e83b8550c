// Package tui implements the interactive investigation dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/caseworker/internal/actions"
	"github.com/Veraticus/caseworker/internal/common"
	"github.com/Veraticus/caseworker/internal/dossier"
	"github.com/Veraticus/caseworker/internal/jobs"
	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/tui/components"
	"github.com/Veraticus/caseworker/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// State represents the current screen.
type State int

const (
	StateList State = iota
	StateDetail
	StateForm
	StateModal
	StateHelp
)

// Model holds the dashboard state.
type Model struct {
	ctx          context.Context
	detailCtx    context.Context
	cancelDetail context.CancelFunc
	theme        themes.Theme
	listErr      error
	detailErr    error
	events       chan tea.Msg
	loader       *dossier.Loader
	dispatcher   *actions.Dispatcher
	current      *model.User
	progress     map[actions.Action]string
	config       Config
	keymap       KeyMap
	help         help.Model
	spinner      spinner.Model
	userList     components.UserListModel
	dossierView  components.DossierViewModel
	form         components.TransactionFormModel
	modal        components.ModalModel
	snack        string
	snackID      int
	snackLevel   snackLevel
	gen          int
	width        int
	height       int
	state        State
	returnState  State
	loadingUsers bool
	loading      bool
	quitting     bool
}

func newModel(ctx context.Context, cfg Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:          ctx,
		detailCtx:    ctx,
		cancelDetail: func() {},
		config:       cfg,
		theme:        cfg.Theme,
		keymap:       DefaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		events:       make(chan tea.Msg, 64),
		progress:     make(map[actions.Action]string),
		userList:     components.NewUserList(nil, cfg.Theme),
		dossierView:  components.NewDossierView(cfg.Theme),
		width:        cfg.Width,
		height:       cfg.Height,
		state:        StateList,
		loadingUsers: true,
	}

	m.loader = dossier.NewLoader(cfg.Backend)
	poller := jobs.NewPoller(cfg.Backend, cfg.Poll)
	m.dispatcher = actions.NewDispatcher(cfg.Backend, poller, cfg.Actions,
		actions.WithRefresh(func(userID int) {
			m.emit(refreshMsg{userID: userID})
		}),
	)
	m.handleResize()
	return m
}

// Init loads the user directory.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadUsers(), m.listen(), m.spinner.Tick)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case usersLoadedMsg:
		m.loadingUsers = false
		m.listErr = msg.err
		if msg.err == nil {
			m.userList.SetUsers(msg.users)
		}
		return m, nil

	case components.UserSelectedMsg:
		return m, m.openDetail(msg.User)

	case dossierLoadedMsg:
		return m.handleDossierLoaded(msg)

	case refreshMsg:
		cmd := m.listen()
		if m.current != nil && m.current.ID == msg.userID && m.state != StateList {
			return m, tea.Batch(cmd, m.loadDossier(msg.userID, dossier.Silent))
		}
		return m, cmd

	case pollAttemptMsg:
		// A late attempt must not resurrect an action that already finished.
		if _, running := m.progress[msg.action]; running && msg.gen == m.gen {
			m.progress[msg.action] = fmt.Sprintf("%s (%d/%d)", msg.status, msg.attempt, m.maxAttempts())
		}
		return m, m.listen()

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case components.TransactionSubmittedMsg:
		return m.submitTransaction(msg)

	case components.FormCanceledMsg, components.ModalClosedMsg:
		m.state = StateDetail
		return m, nil

	case snackExpiredMsg:
		if msg.id == m.snackID {
			m.snack = ""
		}
		return m, nil
	}

	return m.delegate(msg)
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateList:
		content = m.renderList()
	case StateDetail:
		content = m.renderDetail()
	case StateForm:
		content = m.renderOverlay(m.form.View())
	case StateModal:
		content = m.renderOverlay(m.modal.View())
	case StateHelp:
		content = m.renderHelp()
	}

	return m.wrapWithStatusBar(content)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.cancelDetail()
		m.quitting = true
		return m, tea.Quit
	}
	if key.Matches(msg, m.keymap.ClearScreen) {
		return m, tea.ClearScreen
	}

	switch m.state {
	case StateForm, StateModal:
		return m.delegate(msg)

	case StateHelp:
		if key.Matches(msg, m.keymap.Help, m.keymap.Back, m.keymap.Quit) {
			m.state = m.returnState
		}
		return m, nil

	case StateList:
		if m.userList.Searching() {
			return m.delegate(msg)
		}
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Help):
			m.returnState, m.state = m.state, StateHelp
			return m, nil
		case key.Matches(msg, m.keymap.Reload):
			m.loadingUsers = true
			return m, m.loadUsers()
		}
		return m.delegate(msg)

	case StateDetail:
		return m.handleDetailKey(msg)
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Back):
		m.closeDetail()
		return m, nil
	case key.Matches(msg, m.keymap.Quit):
		m.cancelDetail()
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.returnState, m.state = m.state, StateHelp
		return m, nil
	case key.Matches(msg, m.keymap.Refresh):
		m.loading = true
		m.detailErr = nil
		return m, m.loadDossier(m.current.ID, dossier.Full)
	}

	// Actions need a loaded dossier.
	if m.loading || m.detailErr != nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.KYC):
		return m.startAction(actions.KYC, "Running KYC check...", m.runAction(actions.KYC, nil))
	case key.Matches(msg, m.keymap.Graph):
		return m.startAction(actions.Graph, "Starting network analysis...", m.runAction(actions.Graph, nil))
	case key.Matches(msg, m.keymap.Explain):
		return m.startAction(actions.Advise, "Asking the advisor...", m.runAdvisor(false))
	case key.Matches(msg, m.keymap.SAR):
		return m.startAction(actions.Advise, "Drafting SAR...", m.runAdvisor(true))
	case key.Matches(msg, m.keymap.AddTransaction):
		if m.dispatcher.InProgress(actions.AddTransaction) {
			return m, m.showSnack("A transaction is already being added.", snackWarning)
		}
		m.form = components.NewTransactionForm(m.theme)
		m.state = StateForm
		return m, nil
	}

	return m.delegate(msg)
}

func (m Model) startAction(action actions.Action, label string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if _, running := m.progress[action]; running || m.dispatcher.InProgress(action) {
		return m, m.showSnack(fmt.Sprintf("%s is already running.", actionName(action)), snackWarning)
	}
	m.progress[action] = label
	return m, cmd
}

// delegate forwards a message to the active component.
func (m Model) delegate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case StateList:
		m.userList, cmd = m.userList.Update(msg)
	case StateDetail:
		m.dossierView, cmd = m.dossierView.Update(msg)
	case StateForm:
		m.form, cmd = m.form.Update(msg)
	case StateModal:
		m.modal, cmd = m.modal.Update(msg)
	}
	return m, cmd
}

// openDetail starts a new generation for user and loads the dossier.
func (m *Model) openDetail(user model.User) tea.Cmd {
	m.cancelDetail()
	m.gen++
	m.detailCtx, m.cancelDetail = context.WithCancel(m.ctx)

	m.current = &user
	m.state = StateDetail
	m.loading = true
	m.detailErr = nil
	m.progress = make(map[actions.Action]string)
	m.dossierView = components.NewDossierView(m.theme)
	m.handleResize()

	return m.loadDossier(user.ID, dossier.Full)
}

// closeDetail cancels in-flight work and invalidates its messages.
func (m *Model) closeDetail() {
	m.cancelDetail()
	m.cancelDetail = func() {}
	m.detailCtx = m.ctx
	m.gen++
	m.current = nil
	m.progress = make(map[actions.Action]string)
	m.state = StateList
}

func (m Model) handleDossierLoaded(msg dossierLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || m.current == nil {
		return m, nil
	}

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		if msg.mode == dossier.Silent {
			return m, m.showSnack("Refresh failed: "+common.UserMessage(msg.err), snackWarning)
		}
		m.loading = false
		m.detailErr = msg.err
		return m, nil
	}

	m.loading = false
	m.detailErr = nil
	m.dossierView.SetDossier(msg.dossier)
	m.current = &msg.dossier.Profile
	return m, nil
}

func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	delete(m.progress, msg.action)

	res := msg.result
	if msg.err != nil && errors.Is(msg.err, context.Canceled) {
		return m, nil
	}

	switch msg.action {
	case actions.Advise:
		if res == nil {
			return m, m.showSnack(failureText(nil, msg.err), snackError)
		}
		m.openModal(res.Title, res.Text)
		return m, nil

	case actions.Graph:
		if msg.err != nil || res == nil || res.Graph == nil {
			return m, m.showSnack(failureText(res, msg.err), snackError)
		}
		m.openModal("Network Analysis", renderGraph(m.theme, res.Graph))
		return m, m.showSnack(res.Message, snackSuccess)

	default:
		if msg.err != nil {
			return m, m.showSnack(failureText(res, msg.err), snackError)
		}
		return m, m.showSnack(res.Message, snackSuccess)
	}
}

func (m Model) submitTransaction(msg components.TransactionSubmittedMsg) (tea.Model, tea.Cmd) {
	txn, err := model.ParseNewTransaction(msg.Amount, msg.Description)
	if err != nil {
		m.form.SetError(capitalize(err.Error()) + ".")
		return m, nil
	}
	if m.dispatcher.InProgress(actions.AddTransaction) {
		m.form.SetError("A transaction is already being added.")
		return m, nil
	}

	m.state = StateDetail
	m.progress[actions.AddTransaction] = "Adding transaction..."
	return m, m.runAction(actions.AddTransaction, &txn)
}

func (m *Model) openModal(title, body string) {
	m.modal = components.NewModal(title, body, m.width, m.height, m.theme)
	m.state = StateModal
}

func (m Model) maxAttempts() int {
	if m.config.Poll.MaxAttempts > 0 {
		return m.config.Poll.MaxAttempts
	}
	return jobs.DefaultMaxAttempts
}

// handleResize adjusts component sizes when the terminal resizes.
func (m *Model) handleResize() {
	// Status bar and detail header.
	m.userList.Resize(m.width-2, m.height-2)
	m.dossierView.Resize(m.width-2, m.height-4)
}

// failureText picks the analyst-facing message for a failed action.
func failureText(res *actions.Result, err error) string {
	if res != nil && res.Message != "" {
		return res.Message
	}
	if err == nil {
		return "Action failed."
	}
	return common.UserMessage(err)
}

func actionName(a actions.Action) string {
	switch a {
	case actions.KYC:
		return "KYC check"
	case actions.Graph:
		return "Network analysis"
	case actions.AddTransaction:
		return "Add transaction"
	default:
		return "Advisor request"
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
