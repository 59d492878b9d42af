package models

// ProcessingProgress is the shared mutable record tracking the external
// pipeline's status for one document. The front end only ever reads it; the
// processing backend owns all writes.
//
// Success is tri-state: nil while processing is in flight, then set to true or
// false exactly once. CurrStep is monotonically non-decreasing while Success
// is nil.
type ProcessingProgress struct {
	PdfID      string `json:"pdfId" firestore:"pdf_id"`
	TotalSteps int    `json:"totalSteps" firestore:"total_steps"`
	CurrStep   int    `json:"currStep" firestore:"curr_step"`
	Success    *bool  `json:"success" firestore:"success"`
	Msg        string `json:"msg" firestore:"msg"`
}

// NewProcessingProgress returns the fresh row written when processing is first
// triggered for a document.
func NewProcessingProgress(pdfID string) ProcessingProgress {
	return ProcessingProgress{
		PdfID:      pdfID,
		TotalSteps: 1,
		CurrStep:   0,
		Success:    nil,
	}
}

// Terminal reports whether the backend has committed an outcome.
func (p ProcessingProgress) Terminal() bool {
	return p.Success != nil
}

// Succeeded reports a committed successful outcome.
func (p ProcessingProgress) Succeeded() bool {
	return p.Success != nil && *p.Success
}

// Failed reports a committed failed outcome.
func (p ProcessingProgress) Failed() bool {
	return p.Success != nil && !*p.Success
}

// Percent converts step progress into a 0-100 display value.
func (p ProcessingProgress) Percent() float64 {
	if p.TotalSteps <= 0 {
		return 0
	}
	pct := float64(p.CurrStep) / float64(p.TotalSteps) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
