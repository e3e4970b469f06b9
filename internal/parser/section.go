package parser

// section is the parser state inside one series block.
type section int

const (
	sectionNone section = iota
	sectionCalculation
	sectionMeasurement
	sectionVersionInfo
)

func (s section) String() string {
	switch s {
	case sectionCalculation:
		return "Calculation"
	case sectionMeasurement:
		return "Measurement"
	case sectionVersionInfo:
		return "Version Information"
	}
	return "none"
}

// minFields is the field count a data row needs in each section.
func (s section) minFields() int {
	switch s {
	case sectionCalculation:
		return 4
	case sectionMeasurement:
		return 5
	case sectionVersionInfo:
		return 1
	}
	return 2
}

// transition returns the state after a row whose first field is first, and
// whether the row was a section marker (consumed, carries no data).
func transition(cur section, first string) (section, bool) {
	switch first {
	case "":
		return sectionNone, true
	case "Calculation":
		return sectionCalculation, true
	case "Measurement":
		return sectionMeasurement, true
	case "Version Information":
		return sectionVersionInfo, true
	}
	return cur, false
}
