package sheets

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/caseworker/internal/model"
)

// Row offsets of the dossier layout, used for formatting.
const (
	titleRow     = 0
	profileStart = 2
)

// layout records where each section of a dossier tab starts.
type layout struct {
	alertsHeader       int
	transactionsHeader int
	totalRows          int
}

// TabTitle names the tab a dossier is written to.
func TabTitle(profile model.User) string {
	name := strings.TrimSpace(profile.FullName)
	if name == "" {
		name = "Unknown"
	}
	// Sheet titles cannot contain these characters.
	name = strings.NewReplacer("[", "(", "]", ")", ":", " ", "*", " ", "?", " ", "/", "-", "\\", "-").Replace(name)
	title := fmt.Sprintf("%d - %s", profile.ID, name)
	if len(title) > 100 {
		title = title[:100]
	}
	return title
}

// BuildValues lays out a dossier as sheet rows: a title, the profile, the
// alerts and the transactions, separated by blank rows.
func BuildValues(d *model.Dossier, generated time.Time) [][]any {
	values, _ := buildValues(d, generated)
	return values
}

func buildValues(d *model.Dossier, generated time.Time) ([][]any, layout) {
	values := make([][]any, 0, 12+len(d.Alerts)+len(d.Transactions))

	values = append(values,
		[]any{"Investigation Dossier", d.Profile.FullName, "Generated " + generated.Format("Jan 2, 2006 15:04 MST")},
		[]any{},
		[]any{"User ID", d.Profile.ID},
		[]any{"Email", d.Profile.Email},
		[]any{"Country", d.Profile.Country},
		[]any{"Member Since", formatTime(d.Profile.CreatedAt.Time)},
		[]any{"Open Alerts", d.OpenAlerts()},
		[]any{},
	)

	var l layout
	l.alertsHeader = len(values)
	values = append(values, []any{"Alerts", "Type", "Status", "Message", "AI Summary", "Raised"})
	if len(d.Alerts) == 0 {
		values = append(values, []any{"", "No alerts"})
	}
	for _, a := range d.Alerts {
		values = append(values, []any{a.ID, a.AlertType, string(a.Status), a.Message, a.Summary(), formatTime(a.CreatedAt.Time)})
	}
	values = append(values, []any{})

	l.transactionsHeader = len(values)
	values = append(values, []any{"Transactions", "Date", "Amount", "Currency", "Description"})
	if len(d.Transactions) == 0 {
		values = append(values, []any{"", "No transactions"})
	}
	for _, t := range d.Transactions {
		values = append(values, []any{t.ID, formatTime(t.Timestamp.Time), t.Amount, t.Currency, t.Description})
	}

	l.totalRows = len(values)
	return values, l
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
