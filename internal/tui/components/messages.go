// Package components holds the dashboard's reusable views.
package components

import "github.com/Veraticus/caseworker/internal/model"

// UserSelectedMsg requests the dossier of a user.
type UserSelectedMsg struct {
	User model.User
}

// TransactionSubmittedMsg carries the raw add-transaction form input.
type TransactionSubmittedMsg struct {
	Amount      string
	Description string
}

// FormCanceledMsg is sent when the analyst leaves a form without submitting.
type FormCanceledMsg struct{}

// ModalClosedMsg is sent when a modal overlay is dismissed.
type ModalClosedMsg struct{}
