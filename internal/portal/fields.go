package portal

// SessionFields is the flat field set one MEBBIS interview form expects.
// Produced by the session data mapper; the driver types these values into
// the form in a fixed order and never interprets them.
type SessionFields struct {
	SessionRef        string // caller's reference, echoed back in the outcome
	StudentNationalID string // TC kimlik no, used to locate the student record
	StudentName       string
	ClassName         string
	SessionDate       string // DD.MM.YYYY, the portal's date format
	WorkArea          string
	Topic             string
	Method            string
	Summary           string
}

// SessionOutcome is the per-item result the driver hands back to the manager.
// Success=false with a message is an ordinary per-item failure; conditions
// that invalidate the browser itself are returned as errors, never outcomes.
type SessionOutcome struct {
	SessionRef   string `json:"session_ref"`
	Success      bool   `json:"success"`
	Confirmation string `json:"confirmation,omitempty"`
	Error        string `json:"error,omitempty"`
}
