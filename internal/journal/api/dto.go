package api

// PostJournalReq asks the engine to post one source transaction.
type PostJournalReq struct {
	SourceTable string `json:"source_table" binding:"required"`
	SourceID    int64  `json:"source_id" binding:"required"`
	ForceRepost bool   `json:"force_repost"`
}

// PreviewJournalReq asks for a read-only journal preview.
type PreviewJournalReq struct {
	SourceTable string `json:"source_table" binding:"required"`
	SourceID    int64  `json:"source_id" binding:"required"`
}
