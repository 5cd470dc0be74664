package models

// Source is one cited passage backing an answer, rank-ordered by vector
// distance (rank 1 = nearest).
type Source struct {
	Rank        int    `json:"rank"`
	File        string `json:"file"`
	Relevance   string `json:"relevance"`
	TextPreview string `json:"text_preview"`
}

// QueryResult is the structured answer to one question. It is ephemeral and
// never persisted.
type QueryResult struct {
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	Sources       []Source `json:"sources"`
	NumSources    int      `json:"num_sources"`
	GraphInsights string   `json:"graph_insights"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}
