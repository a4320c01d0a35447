package habit

// Preset is a habit template offered during onboarding.
type Preset struct {
	ID     string
	Title  string
	Type   Type
	Target *float64
	Unit   *string
}

// Presets lists the onboarding templates in display order.
var Presets = []Preset{
	{ID: "walk", Title: "Walk 20 minutes", Type: TypeWalk, Target: Float(20), Unit: String("min")},
	{ID: "water", Title: "Drink 2L water", Type: TypeWater, Target: Float(2000), Unit: String("ml")},
	{ID: "meditate", Title: "Meditate 10 min", Type: TypeMeditate, Target: Float(10), Unit: String("min")},
	{ID: "sleep", Title: "Sleep by 11pm", Type: TypeSleep},
}

// PresetByID looks up an onboarding template.
func PresetByID(id string) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Habit turns the template into an active daily habit without id or timestamp.
func (p Preset) Habit() Habit {
	h := Habit{
		Title:     p.Title,
		Type:      p.Type,
		Frequency: FrequencyDaily,
		Active:    true,
	}
	if p.Target != nil {
		h.Target = Float(*p.Target)
	}
	if p.Unit != nil {
		h.Unit = String(*p.Unit)
	}
	return h
}
