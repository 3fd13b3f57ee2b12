package mongoDB

import (
	"testing"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDocumentShape(t *testing.T) {
	chunks := []commonModels.Chunk{{
		Content:  "NullPointerException in handler",
		Vector:   []float32{0.25, -1},
		Metadata: commonModels.ChunkMetadata{Source: "doc-1", Page: 3},
		Order:    4,
	}}

	docs := toDocuments(chunks, "batch-1")
	require.Len(t, docs, 1)

	data, err := bson.Marshal(docs[0])
	require.NoError(t, err)
	raw := bson.Raw(data)

	_, err = raw.LookupErr("_id")
	assert.Error(t, err, "_id must be left to the server")
	assert.Equal(t, "NullPointerException in handler", raw.Lookup("content").StringValue())
	assert.Equal(t, "batch-1", raw.Lookup("batch_id").StringValue())
	assert.Equal(t, "doc-1", raw.Lookup("metadata", "source").StringValue())
	assert.EqualValues(t, 3, raw.Lookup("metadata", "page").AsInt64())
}

func TestDocumentRoundTrip(t *testing.T) {
	in := commonModels.Chunk{
		Content:  "stack overflow",
		Vector:   []float32{1, 2, 3},
		Metadata: commonModels.ChunkMetadata{Source: "doc-2", Page: 0},
		Order:    1,
	}
	raw, err := bson.Marshal(toDocuments([]commonModels.Chunk{in}, "b")[0])
	require.NoError(t, err)

	var doc chunkDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, []commonModels.Chunk{in}, fromDocuments([]chunkDocument{doc}))
}
