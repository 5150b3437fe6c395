package static

// IndexResponse is the static story index published next to the site.
// Story documents are loosely typed and go through domain.Ingest.
type IndexResponse struct {
	Stories []map[string]any `json:"stories"`
}
