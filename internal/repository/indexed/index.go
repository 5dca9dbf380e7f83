package indexed

import (
	"github.com/kailas-cloud/picdex/internal/db"
)

// buildIndex describes the FT index over item hashes: one HNSW cosine field
// per vector space plus the numeric attributes and tag list filters push down.
func buildIndex(o Options) (*db.IndexDefinition, error) {
	b := db.NewIndex(o.IndexName).
		Prefix(o.itemPrefix()).
		Numeric(fieldWidth).
		Numeric(fieldHeight).
		Numeric(fieldAspectRatio).
		SortableNumeric(fieldSeq).
		TagWithOpts(fieldTagList, tagSeparator, false).
		VectorHNSW(fieldVisionVector, o.VisionDim, db.DistanceCosine, o.HNSWM, o.HNSWEFConstruct)
	if o.TextDim > 0 {
		b = b.VectorHNSW(fieldTextVector, o.TextDim, db.DistanceCosine, o.HNSWM, o.HNSWEFConstruct)
	}
	return b.Build()
}
