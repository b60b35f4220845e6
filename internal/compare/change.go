package compare

// Classification is the outcome for one anchor key.
type Classification int

const (
	None Classification = iota
	Add
	Update
	Delete
)

func (c Classification) String() string {
	switch c {
	case Add:
		return "Add"
	case Update:
		return "Update"
	case Delete:
		return "Delete"
	default:
		return "None"
	}
}

// IsChange reports whether c belongs in a non-detailed report.
func (c Classification) IsChange() bool { return c != None }

// Field is one retained column of a Change.
type Field struct {
	Old      string
	New      string
	Match    bool
	Compared bool // false for Add and Delete
}

// Change is the result for one anchor key. Fields align with the layout's
// retained columns.
type Change struct {
	Anchor string
	Class  Classification
	Fields []Field

	// PrevLine and CurrLine are the source lines, 0 when the side is absent.
	PrevLine int
	CurrLine int
}
