package finding

// Outcome labels what a probe observed for one catalog entry.
type Outcome string

const (
	OutcomeVulnerable    Outcome = "vulnerable"
	OutcomeOpen          Outcome = "open"
	OutcomePresent       Outcome = "present"
	OutcomeMissing       Outcome = "missing"
	OutcomeActive        Outcome = "active"
	OutcomeAllowed       Outcome = "allowed"
	OutcomeOnline        Outcome = "online"
	OutcomeMatch         Outcome = "match"
	OutcomeNotVulnerable Outcome = "not_vulnerable"
	OutcomeClosed        Outcome = "closed"
	OutcomeAbsent        Outcome = "absent"
	OutcomeInactive      Outcome = "inactive"
	OutcomeBlocked       Outcome = "blocked"
	OutcomeOffline       Outcome = "offline"
	OutcomeNoMatch       Outcome = "no_match"
	OutcomeFiltered      Outcome = "filtered"
	OutcomeUnknown       Outcome = "unknown"
	OutcomeError         Outcome = "error"
)

var positiveOutcomes = map[Outcome]bool{
	OutcomeVulnerable: true,
	OutcomeOpen:       true,
	OutcomeMissing:    true,
	OutcomeActive:     true,
	OutcomeAllowed:    true,
	OutcomeOnline:     true,
	OutcomeMatch:      true,
}

// Positive reports whether the outcome counts toward the report risk.
func (o Outcome) Positive() bool {
	return positiveOutcomes[o]
}

func (o Outcome) String() string {
	return string(o)
}
