package wizard

import (
	"strconv"
	"strings"

	"app/internal/model"
)

// Verdict is the result of validating one wizard step. Errors maps a field key
// to a display message; it blocks forward navigation only.
type Verdict struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ValidateStep checks whether the session may advance past the given step.
// Backward navigation and save/publish calls never consult it.
func ValidateStep(step int, s State) Verdict {
	errs := map[string]string{}
	switch step {
	case 1:
		validateBasics(s.Course, errs)
	case 2:
		validateDetails(s.Course, errs)
	case 3:
		validateModules(s.Course, errs)
	case 4:
		validateContent(s.Course, errs)
	case 5:
		validateBasics(s.Course, errs)
		validateDetails(s.Course, errs)
		validateModules(s.Course, errs)
		validateContent(s.Course, errs)
		// Aggregate re-check: the per-module rule can be individually
		// satisfied while the course as a whole has no lessons left.
		if totalLessons(s.Course) == 0 {
			errs["totalLessons"] = "Course must contain at least one lesson"
		}
	}
	return Verdict{Valid: len(errs) == 0, Errors: errs}
}

func validateBasics(c model.Course, errs map[string]string) {
	if strings.TrimSpace(c.Title) == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(c.CategoryID) == "" {
		errs["categoryId"] = "Category is required"
	}
}

func validateDetails(c model.Course, errs map[string]string) {
	if strings.TrimSpace(c.Description) == "" {
		errs["description"] = "Description is required"
	}
	if price := strings.TrimSpace(c.Price); price != "" {
		if _, err := strconv.ParseFloat(price, 64); err != nil {
			errs["price"] = "Price must be a number"
		}
	}
}

func validateModules(c model.Course, errs map[string]string) {
	if len(c.Modules) == 0 {
		errs["modules"] = "Add at least one module"
		return
	}
	for _, m := range c.Modules {
		if strings.TrimSpace(m.Title) == "" {
			errs["moduleTitles"] = "Every module needs a title"
			break
		}
	}
}

func validateContent(c model.Course, errs map[string]string) {
	for _, m := range c.Modules {
		if len(m.Lessons) == 0 {
			errs["lessons"] = "Every module needs at least one lesson"
			break
		}
	}
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if strings.TrimSpace(l.Title) == "" {
				errs["lessonTitles"] = "Every lesson needs a title"
				return
			}
		}
	}
}

func totalLessons(c model.Course) int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}
