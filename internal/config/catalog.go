package config

import (
	"fmt"
	"strings"
)

// Default course codes. Extraction folders are named after these codes.
const (
	CourseFall2526       = "2526ALL_OL_GENAI_00"
	CourseFall2526Retake = "2526ALL_OL_GENAI_02"
	CourseSpring2526     = "2526ALL_SPR_GENAI_00"
	CourseSpring2526Re   = "2526ALL_SPR_GENAI_02"
	CourseSpring2425     = "2425ALL_OL_GENAI_00"
	CoursePOC            = "Poc_Students"

	// DefaultExtractionCourse is the preset offered by the extraction workflow.
	DefaultExtractionCourse = CourseSpring2526
)

// CourseCatalog assigns roles to course codes. Main is the current intake,
// Retake the second-chance track, Old the previous year whose verdict decides
// whether a student must retake, POC the pilot cohort. Labels name courses on
// the statistics views; StatusLabels name them in a student's status.
type CourseCatalog struct {
	Main         string            `yaml:"main" envconfig:"MAIN"`
	Retake       string            `yaml:"retake" envconfig:"RETAKE"`
	Old          string            `yaml:"old" envconfig:"OLD"`
	POC          string            `yaml:"poc" envconfig:"POC"`
	Tracked      []string          `yaml:"tracked" envconfig:"TRACKED"`
	Labels       map[string]string `yaml:"labels" envconfig:"LABELS"`
	StatusLabels map[string]string `yaml:"status_labels" envconfig:"STATUS_LABELS"`
}

// DefaultCourseCatalog returns the GenAI course catalog.
func DefaultCourseCatalog() CourseCatalog {
	return CourseCatalog{
		Main:   CourseFall2526,
		Retake: CourseFall2526Retake,
		Old:    CourseSpring2425,
		POC:    CoursePOC,
		Tracked: []string{
			CourseSpring2425,
			CourseFall2526,
			CourseFall2526Retake,
			CourseSpring2526,
			CourseSpring2526Re,
		},
		Labels: map[string]string{
			CourseSpring2425:     "Spring 2425",
			CourseFall2526:       "Fall 2526 new students",
			CourseFall2526Retake: "Fall 2526 retake",
			CourseSpring2526:     "Spring 2526 new students",
			CourseSpring2526Re:   "Spring 2526 retake",
			CoursePOC:            "POC students",
		},
		StatusLabels: map[string]string{
			CourseFall2526:       "Fall 2526 course",
			CourseFall2526Retake: "Retake Fall 2526",
			CourseSpring2425:     "Spring 2425",
		},
	}
}

func (c CourseCatalog) withDefaults() CourseCatalog {
	def := DefaultCourseCatalog()
	if c.Main == "" {
		c.Main = def.Main
	}
	if c.Retake == "" {
		c.Retake = def.Retake
	}
	if c.Old == "" {
		c.Old = def.Old
	}
	if c.POC == "" {
		c.POC = def.POC
	}
	if len(c.Tracked) == 0 {
		c.Tracked = def.Tracked
	}
	if c.Labels == nil {
		c.Labels = map[string]string{}
	}
	if c.StatusLabels == nil {
		c.StatusLabels = map[string]string{}
	}
	return c
}

func (c CourseCatalog) validate() error {
	seen := map[string]string{}
	for role, code := range map[string]string{"main": c.Main, "retake": c.Retake, "old": c.Old} {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("course catalog: %s course code is empty", role)
		}
		if other, dup := seen[code]; dup {
			return fmt.Errorf("course catalog: %s and %s share code %q", other, role, code)
		}
		seen[code] = role
	}
	return nil
}

// Label returns the display label of code, or code itself.
func (c CourseCatalog) Label(code string) string {
	if l, ok := c.Labels[code]; ok && l != "" {
		return l
	}
	return code
}

// StatusLabel returns the label of code used in student status text. It
// falls back to Label.
func (c CourseCatalog) StatusLabel(code string) string {
	if l, ok := c.StatusLabels[code]; ok && l != "" {
		return l
	}
	return c.Label(code)
}

// StatusOrder lists the courses a student's status is computed over.
func (c CourseCatalog) StatusOrder() []string {
	return []string{c.Main, c.Retake, c.Old}
}

// IsPOC reports whether code names the POC cohort, ignoring case and padding.
func (c CourseCatalog) IsPOC(code string) bool {
	return c.POC != "" && strings.EqualFold(strings.TrimSpace(code), c.POC)
}

// StatsCourses returns the tracked courses followed by the POC course, without
// duplicates.
func (c CourseCatalog) StatsCourses() []string {
	out := make([]string, 0, len(c.Tracked)+1)
	seen := make(map[string]bool, len(c.Tracked)+1)
	for _, code := range append(append([]string(nil), c.Tracked...), c.POC) {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// TargetSheetFor returns the gradebook sheet Blackboard names for course.
func TargetSheetFor(course string) string {
	return "gc_" + course + "_fullgc_2"
}

// OutputNameFor returns the default merged workbook name for course.
func OutputNameFor(course string) string {
	return "Data_GenAI_" + course + ".xlsx"
}
