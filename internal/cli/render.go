package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/caseworker/internal/model"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// FormatDate renders a backend timestamp for tables, or "-" when absent.
func FormatDate(ts model.Timestamp, layout string) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(layout)
}

// FormatAmount renders an amount with its currency code.
func FormatAmount(amount float64, currency string) string {
	value := strconv.FormatFloat(amount, 'f', 2, 64)
	if currency == "" {
		return value
	}
	return value + " " + currency
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// RenderUsers prints the user directory as a table.
func RenderUsers(w io.Writer, users []model.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No users found."))
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tCOUNTRY\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			u.ID, u.FullName, u.Email, u.Country, FormatDate(u.CreatedAt, dateLayout))
	}
	return tw.Flush()
}

// RenderDossier prints a subject's profile, alerts and transactions.
func RenderDossier(w io.Writer, d *model.Dossier) error {
	p := d.Profile
	profile := strings.Join([]string{
		fmt.Sprintf("%s %d", BoldStyle.Render("ID:"), p.ID),
		fmt.Sprintf("%s %s", BoldStyle.Render("Email:"), p.Email),
		fmt.Sprintf("%s %s", BoldStyle.Render("Country:"), p.Country),
		fmt.Sprintf("%s %s", BoldStyle.Render("Member since:"), FormatDate(p.CreatedAt, dateLayout)),
	}, "\n")
	if _, err := fmt.Fprintln(w, RenderBox(p.FullName, profile)); err != nil {
		return err
	}

	header := fmt.Sprintf("%s Alerts (%d open of %d)", AlertIcon, d.OpenAlerts(), len(d.Alerts))
	if _, err := fmt.Fprintln(w, "\n"+TitleStyle.Render(header)); err != nil {
		return err
	}
	if err := renderAlerts(w, d.Alerts); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "\n"+TitleStyle.Render(fmt.Sprintf("Transactions (%d)", len(d.Transactions)))); err != nil {
		return err
	}
	return renderTransactions(w, d.Transactions)
}

func renderAlerts(w io.Writer, alerts []model.Alert) error {
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No alerts for this user."))
		return err
	}

	for _, a := range alerts {
		status := SubtleStyle.Render(string(a.Status))
		if a.IsOpen() {
			status = AlertStyle.Render(string(a.Status))
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %s\n  %s\n  %s %s\n",
			status,
			BoldStyle.Render(a.AlertType),
			SubtleStyle.Render(FormatDate(a.CreatedAt, dateTimeLayout)),
			a.Message,
			InfoStyle.Render(RobotIcon),
			a.Summary(),
		); err != nil {
			return err
		}
	}
	return nil
}

func renderTransactions(w io.Writer, txns []model.Transaction) error {
	if len(txns) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No transactions recorded."))
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tAMOUNT\tDESCRIPTION")
	for _, t := range txns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			t.ID, FormatDate(t.Timestamp, dateTimeLayout), FormatAmount(t.Amount, t.Currency), t.Description)
	}
	return tw.Flush()
}

// RenderGraph prints a digest of a network analysis result. A plot that
// cannot be read is reported in place of the network summary.
func RenderGraph(w io.Writer, g *model.GraphResult) error {
	var body strings.Builder
	net, err := g.Network()
	if err != nil {
		body.WriteString(ErrorStyle.Render(err.Error()))
	} else {
		fmt.Fprintf(&body, "%s %d nodes, %d edges\n", BoldStyle.Render("Network:"), len(net.Nodes), net.Edges)
		for _, node := range net.Nodes {
			fmt.Fprintf(&body, "  • %s\n", node)
		}
	}

	body.WriteString("\n" + BoldStyle.Render("AI Investigator's Report") + "\n")
	body.WriteString(g.Explanation())

	_, err = fmt.Fprintln(w, RenderBox(GraphIcon+" Network Analysis", body.String()))
	return err
}

// RenderAdvice prints an advisor response under its title.
func RenderAdvice(w io.Writer, title, text string) error {
	_, err := fmt.Fprintln(w, RenderBox(RobotIcon+" "+title, text))
	return err
}
