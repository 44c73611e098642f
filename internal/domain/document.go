package domain

// Document is a scraped documentation page in markdown form, the unit of
// input to the chunking pipeline.
type Document struct {
	Content    string
	URL        string
	SourceType SourceType
	Section    string
	Title      string
	Version    string
}
