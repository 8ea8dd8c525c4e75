package scrape

// Language is the classifier's best guess for a lyrics text.
type Language struct {
	Code         string  `json:"code"`
	Name         string  `json:"name,omitempty"`
	Probability  float64 `json:"probability"`
	DetectedFrom string  `json:"detectedFrom"`
}

// Result is the unit returned to the caller for a successful scrape.
// Lyrics is always non-empty and trimmed.
type Result struct {
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	Lyrics    string   `json:"lyrics"`
	Language  Language `json:"language"`
	Source    string   `json:"source"`
	Explicit  bool     `json:"explicit,omitempty"`
	UsedProxy string   `json:"usedProxy"`
}
