package outreach

// Palette holds the colors used for markers and tract fills.
type Palette struct {
	Today    string `json:"today"`
	Upcoming string `json:"upcoming"`
	Past     string `json:"past"`

	Tier1   string `json:"tier1"`
	Tier2   string `json:"tier2"`
	Tier3   string `json:"tier3"`
	Tier4   string `json:"tier4"`
	Unknown string `json:"unknown"`
}

// DefaultPalette returns the stock marker and choropleth colors.
func DefaultPalette() Palette {
	return Palette{
		Today:    "#10b981",
		Upcoming: "#3b82f6",
		Past:     "#9ca3af",
		Tier1:    "#10b981",
		Tier2:    "#fbbf24",
		Tier3:    "#f59e0b",
		Tier4:    "#dc2626",
		Unknown:  "#ccc",
	}
}

// withDefaults fills blank colors from DefaultPalette.
func (p Palette) withDefaults() Palette {
	d := DefaultPalette()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&p.Today, d.Today)
	fill(&p.Upcoming, d.Upcoming)
	fill(&p.Past, d.Past)
	fill(&p.Tier1, d.Tier1)
	fill(&p.Tier2, d.Tier2)
	fill(&p.Tier3, d.Tier3)
	fill(&p.Tier4, d.Tier4)
	fill(&p.Unknown, d.Unknown)
	return p
}

// StatusColor returns the marker color for a status.
func (p Palette) StatusColor(s Status) string {
	switch s {
	case StatusToday:
		return p.Today
	case StatusUpcoming:
		return p.Upcoming
	default:
		return p.Past
	}
}

// TierColor returns the fill color for a tier.
func (p Palette) TierColor(t Tier) string {
	switch t {
	case Tier1:
		return p.Tier1
	case Tier2:
		return p.Tier2
	case Tier3:
		return p.Tier3
	case Tier4:
		return p.Tier4
	default:
		return p.Unknown
	}
}
