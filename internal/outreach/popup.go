package outreach

import (
	"bytes"
	"html/template"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const popupDateLayout = "Mon, Jan 2, 2006"

var markerPopupTmpl = template.Must(template.New("marker").Parse(`<div class="popup">
<span class="status status-{{.StatusClass}}">{{.Status}}</span>
<h3>{{.Location}}</h3>
<p><strong>{{.DateLabel}}:</strong> {{.Date}}</p>
{{- if .AlsoScheduled}}
<p><strong>Also scheduled:</strong> {{.AlsoScheduled}}</p>
{{- end}}
<p><strong>Time:</strong> {{.Time}}</p>
<p><strong>Address:</strong> {{.Address}}{{if .ZipCode}} {{.ZipCode}}{{end}}</p>
<p><strong>Services:</strong> {{.Services}}</p>
{{- if .Notes}}
<p><strong>Notes:</strong> {{.Notes}}</p>
{{- end}}
</div>`))

var tractPopupTmpl = template.Must(template.New("tract").Parse(`<div class="popup tract">
<h3>{{.Name}}</h3>
<p><strong>Median Income:</strong> {{.MedianIncome}}</p>
<p><strong>Without Insurance:</strong> {{.WithoutInsurance}}</p>
<p><strong>No Transportation:</strong> {{.NoTransport}}</p>
<p><strong>Food Insecurity:</strong> {{.FoodInsecure}}</p>
<p><strong>Housing Insecurity:</strong> {{.HousingInsecure}}</p>
<p><strong>Mental Distress:</strong> {{.MentalDistress}}</p>
<p><strong>Median Age:</strong> {{.MedianAge}}</p>
</div>`))

var numberPrinter = message.NewPrinter(language.English)

// MarkerPopup renders the popup body for a location marker.
func MarkerPopup(g MarkerGroup) (string, error) {
	p := g.Primary

	label := "Last Visit"
	switch g.Status {
	case StatusToday:
		label = "Today"
	case StatusUpcoming:
		label = "Next Date"
	}

	also := make([]string, 0, len(g.AlsoScheduled))
	for _, d := range g.AlsoScheduled {
		also = append(also, d.Format(popupDateLayout))
	}

	data := struct {
		Status, StatusClass, Location, DateLabel, Date string
		AlsoScheduled, Time, Address, ZipCode          string
		Services, Notes                                string
	}{
		Status:        string(g.Status),
		StatusClass:   strings.ToLower(string(g.Status)),
		Location:      p.Location,
		DateLabel:     label,
		Date:          p.Date.Format(popupDateLayout),
		AlsoScheduled: strings.Join(also, "; "),
		Time:          orDefault(p.Time, "TBD"),
		Address:       orDefault(p.Address, "Address not available"),
		ZipCode:       p.ZipCode,
		Services:      orDefault(strings.Join(p.Services, ", "), "No services listed"),
		Notes:         p.Notes,
	}

	var buf bytes.Buffer
	if err := markerPopupTmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrapf(err, "render marker popup for %s", g.Key)
	}
	return buf.String(), nil
}

// TractPopup renders the demographic popup for a census tract. Absent
// metrics read "N/A".
func TractPopup(t CensusTract) (string, error) {
	data := struct {
		Name, MedianIncome, WithoutInsurance, NoTransport string
		FoodInsecure, HousingInsecure, MentalDistress     string
		MedianAge                                         string
	}{
		Name:             orDefault(t.Name, "Census Tract"),
		MedianIncome:     formatCurrency(t.MedianIncome),
		WithoutInsurance: formatPercent(t.PctWithoutInsurance),
		NoTransport:      formatPercent(t.PctNoTransport),
		FoodInsecure:     formatPercent(t.PctFoodInsecure),
		HousingInsecure:  formatPercent(t.PctHousingInsecure),
		MentalDistress:   formatPercent(t.PctMentalDistress),
		MedianAge:        FormatMetric(t.MedianAge),
	}

	var buf bytes.Buffer
	if err := tractPopupTmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrapf(err, "render tract popup for %d", t.TractID)
	}
	return buf.String(), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func formatPercent(v *float64) string {
	s := FormatMetric(v)
	if s == "N/A" {
		return s
	}
	return s + "%"
}

func formatCurrency(v *float64) string {
	if v == nil || !isFinite(*v) {
		return "N/A"
	}
	return numberPrinter.Sprintf("$%d", int64(math.Round(*v)))
}
