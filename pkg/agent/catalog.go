package agent

// Models returns the static model catalog.
func Models() []Model {
	return []Model{
		{
			ID:          "mistral-small-latest",
			Name:        "Mistral Small",
			Description: "Fast and efficient model for general tasks",
			Free:        true,
		},
		{
			ID:          "mistral-large-latest",
			Name:        "Mistral Large",
			Description: "Balance & multi-purpose",
			Free:        true,
		},
		{
			ID:          "gemini-2.0-flash",
			Name:        "Gemini 2",
			Description: "Balanced model for more complex tasks",
			Free:        false,
		},
		{
			ID:          "gemini-2.0-flash-exp",
			Name:        "Gemini 2 EXP",
			Description: "Balanced model for more complex tasks - experimental",
			Free:        false,
		},
	}
}

// LookupModel finds a catalog entry by id.
func LookupModel(id string) (Model, bool) {
	for _, m := range Models() {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
