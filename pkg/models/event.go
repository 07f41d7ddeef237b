package models

// Event is the single entity served to clients. Every upstream shape is
// normalized into this structure before it reaches the store.
type Event struct {
	ID          string `json:"id" db:"id"`                   // zero-padded sequence, e.g. "007"
	Name        string `json:"name" db:"name"`               // event title
	Description string `json:"description" db:"description"` // truncated free text
	Date        string `json:"date" db:"date"`               // dd-mm-yyyy
	Location    string `json:"location" db:"location"`       // venue or area
	Time        string `json:"time" db:"schedule"`           // raw schedule text from the source
	IsFree      bool   `json:"isFree" db:"is_free"`
	Category    string `json:"category" db:"category"` // tag naming the upstream source
	Link        string `json:"link" db:"link"`
	Saved       bool   `json:"saved" db:"saved"` // toggled by users, never by ingestion
}

// DateLayout is the Go layout for Event.Date.
const DateLayout = "02-01-2006"
