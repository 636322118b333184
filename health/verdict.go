package health

// Verdict is a coarse health signal produced by aggregating process
// samples against a threshold.
type Verdict int

const (
	// Unknown means there was not enough data to judge.
	Unknown Verdict = iota
	// Ok means the aggregate is under threshold.
	Ok
	// Overloaded means the aggregate is at or over threshold.
	Overloaded
)

func (v Verdict) String() string {
	switch v {
	case Ok:
		return "Ok"
	case Overloaded:
		return "Overloaded"
	default:
		return "Unknown"
	}
}

// Combine applies the health combining rule: if every verdict is
// Unknown, the result is Unknown; else if any is Overloaded, the
// result is Overloaded; else Ok. Combine of an empty slice is Unknown.
func Combine(verdicts ...Verdict) Verdict {
	allUnknown := true
	anyOverloaded := false

	for _, v := range verdicts {
		if v != Unknown {
			allUnknown = false
		}
		if v == Overloaded {
			anyOverloaded = true
		}
	}

	switch {
	case allUnknown:
		return Unknown
	case anyOverloaded:
		return Overloaded
	default:
		return Ok
	}
}
