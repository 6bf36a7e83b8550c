package tui

import (
	"github.com/Veraticus/caseworker/internal/actions"
	"github.com/Veraticus/caseworker/internal/dossier"
	"github.com/Veraticus/caseworker/internal/model"
)

// Data loading messages.
type usersLoadedMsg struct {
	err   error
	users []model.User
}

type dossierLoadedMsg struct {
	err     error
	dossier *model.Dossier
	mode    dossier.Mode
	gen     int
}

// Async action messages. gen ties each message to the detail view that
// started the work; messages from an older generation are dropped.
type actionDoneMsg struct {
	err    error
	result *actions.Result
	action actions.Action
	gen    int
}

type pollAttemptMsg struct {
	status  model.JobStatus
	action  actions.Action
	attempt int
	gen     int
}

// refreshMsg asks for a silent dossier reload after backend work settled.
type refreshMsg struct {
	userID int
}

// Snackbar messages.
type snackLevel int

const (
	snackInfo snackLevel = iota
	snackSuccess
	snackWarning
	snackError
)

type snackExpiredMsg struct {
	id int
}
