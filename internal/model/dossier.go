package model

// Dossier is everything the detail view shows for one subject.
type Dossier struct {
	Profile      User
	Alerts       []Alert
	Transactions []Transaction
}

// OpenAlerts counts alerts that are not resolved.
func (d *Dossier) OpenAlerts() int {
	n := 0
	for _, a := range d.Alerts {
		if a.IsOpen() {
			n++
		}
	}
	return n
}
