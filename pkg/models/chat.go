package models

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// ChatTurn is one entry of client-supplied conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a question-answering request.
type ChatRequest struct {
	Message            string     `json:"message"`
	History            []ChatTurn `json:"chatHistory"`
	TargetDocumentID   string     `json:"targetDocumentId,omitempty"`
	TargetDocumentName string     `json:"targetDocumentName,omitempty"`
}

// ChatResponse is the answer together with the grounding excerpts used.
type ChatResponse struct {
	Response         string   `json:"response"`
	Context          string   `json:"context"`
	Documents        []string `json:"documents"`
	TargetDocumentID *string  `json:"targetDocumentId"`
}
