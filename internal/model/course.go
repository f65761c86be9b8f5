package model

// Course is the root of the authoring hierarchy. ID and Slug are empty until
// the backend acknowledges the first save.
type Course struct {
	ID            string   `json:"id,omitempty"`
	Slug          string   `json:"slug,omitempty"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Description   string   `json:"description"`
	CategoryID    string   `json:"category_id"`
	Level         string   `json:"level"`
	Price         string   `json:"price"`
	DiscountPrice string   `json:"discount_price"`
	ThumbnailURL  string   `json:"thumbnail_url"`
	Certificate   bool     `json:"certificate"`
	Featured      bool     `json:"featured"`
	Published     bool     `json:"is_published"`
	Requirements  []string `json:"requirements"`
	Skills        []string `json:"skills"`
	Modules       []Module `json:"modules"`
}

// Clone returns a deep copy so stored state can be updated immutably.
func (c Course) Clone() Course {
	out := c
	out.Requirements = append([]string(nil), c.Requirements...)
	out.Skills = append([]string(nil), c.Skills...)
	if c.Modules != nil {
		out.Modules = make([]Module, len(c.Modules))
		for i, m := range c.Modules {
			out.Modules[i] = m.Clone()
		}
	}
	return out
}

// FindModule returns the index of the module with the given id, or -1.
func (c Course) FindModule(id string) int {
	for i, m := range c.Modules {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Persisted reports whether the course has been acknowledged by the backend.
func (c Course) Persisted() bool {
	return c.ID != "" || c.Slug != ""
}

// Identifier returns the handle used for update and publish calls. Slug is
// preferred over the numeric id.
func (c Course) Identifier() string {
	if c.Slug != "" {
		return c.Slug
	}
	return c.ID
}
