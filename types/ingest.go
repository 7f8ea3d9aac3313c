package types

// IngestMeta identifies one ingestion session.
type IngestMeta struct {
	// IngestID is the unique session identifier.
	IngestID string `json:"ingest_id" msgpack:"ingest_id"`
	// Source names the application whose captures are ingested.
	Source string `json:"source" msgpack:"source"`
	// Release is the optional application release.
	Release *string `json:"release,omitempty" msgpack:"release,omitempty"`
}
