package tui

import (
	"context"
	"time"

	"github.com/Veraticus/caseworker/internal/actions"
	"github.com/Veraticus/caseworker/internal/directory"
	"github.com/Veraticus/caseworker/internal/dossier"
	"github.com/Veraticus/caseworker/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

const usersTimeout = 30 * time.Second

// loadUsers fetches the user directory.
func (m Model) loadUsers() tea.Cmd {
	backend, warnSize, ctx := m.config.Backend, m.config.WarnSize, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, usersTimeout)
		defer cancel()

		users, err := directory.Load(ctx, backend, warnSize)
		return usersLoadedMsg{users: users, err: err}
	}
}

// loadDossier fetches the current subject's dossier within the detail
// view's context.
func (m Model) loadDossier(userID int, mode dossier.Mode) tea.Cmd {
	loader, ctx, gen := m.loader, m.detailCtx, m.gen
	return func() tea.Msg {
		d, err := loader.Load(ctx, userID, mode)
		return dossierLoadedMsg{dossier: d, err: err, mode: mode, gen: gen}
	}
}

// emit delivers a message from a background goroutine to the program.
func (m Model) emit(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

// listen waits for the next background event.
func (m Model) listen() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) attemptHook(action actions.Action) func(int, model.JobStatus) {
	gen := m.gen
	return func(attempt int, status model.JobStatus) {
		m.emit(pollAttemptMsg{action: action, attempt: attempt, status: status, gen: gen})
	}
}

// runAction starts an action for the current subject.
func (m Model) runAction(action actions.Action, tx *model.NewTransaction) tea.Cmd {
	if m.current == nil {
		return nil
	}
	d, ctx, gen, userID := m.dispatcher, m.detailCtx, m.gen, m.current.ID
	onAttempt := m.attemptHook(action)

	return func() tea.Msg {
		var (
			res *actions.Result
			err error
		)
		switch action {
		case actions.KYC:
			res, err = d.RunKYC(ctx, userID, onAttempt)
		case actions.Graph:
			res, err = d.RunGraph(ctx, userID, onAttempt)
		case actions.AddTransaction:
			res, err = d.AddTransaction(ctx, userID, formatAmount(tx.Amount), tx.Description)
		}
		return actionDoneMsg{action: action, result: res, err: err, gen: gen}
	}
}

// runAdvisor requests an explanation or a SAR draft.
func (m Model) runAdvisor(sar bool) tea.Cmd {
	if m.current == nil {
		return nil
	}
	d, ctx, gen, userID := m.dispatcher, m.detailCtx, m.gen, m.current.ID

	return func() tea.Msg {
		var (
			res *actions.Result
			err error
		)
		if sar {
			res, err = d.DraftSAR(ctx, userID)
		} else {
			res, err = d.ExplainRisk(ctx, userID)
		}
		return actionDoneMsg{action: actions.Advise, result: res, err: err, gen: gen}
	}
}

// showSnack replaces the snackbar and schedules its expiry.
func (m *Model) showSnack(text string, level snackLevel) tea.Cmd {
	m.snackID++
	m.snack = text
	m.snackLevel = level
	id := m.snackID
	return tea.Tick(m.config.SnackbarDuration, func(time.Time) tea.Msg {
		return snackExpiredMsg{id: id}
	})
}
