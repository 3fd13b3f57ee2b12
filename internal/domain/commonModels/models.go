package commonModels

import "time"

type DocStatus string

const (
	DocStatusProcessing DocStatus = "processing"
	DocStatusReady      DocStatus = "ready"
	DocStatusError      DocStatus = "error"
)

// Document is the registry record for an uploaded file. Its Id is stamped onto
// every chunk as metadata.source.
type Document struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	UploadDate  time.Time `json:"uploadDate"`
	Status      DocStatus `json:"status"`
	ContentType DocType   `json:"contentType"`
	ChunkCount  int       `json:"chunkCount"`
	Error       string    `json:"error,omitempty"`
}

type ChunkMetadata struct {
	Source string `json:"source" bson:"source"`
	Page   int    `json:"page" bson:"page"`
}

// Chunk is the persisted record {content, vector, metadata}. Order is the
// chunk's position within its document and is not part of the ranking.
type Chunk struct {
	Content  string        `json:"content" bson:"content"`
	Vector   []float32     `json:"vector" bson:"vector"`
	Metadata ChunkMetadata `json:"metadata" bson:"metadata"`
	Order    int           `json:"order" bson:"order"`
}

type SimilarityResult struct {
	Content    string        `json:"content"`
	Similarity float64       `json:"similarity"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// Page is extracted document text with its position in the source.
type Page struct {
	Number  int
	Content string
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"
