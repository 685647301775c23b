package index

import (
	"github.com/koopa0/selldesk/internal/chunk"
)

// splitByHash partitions freshly built chunks by comparing their content hash
// against the stored hashes.
//
// A chunk whose rendered text hashes to the stored value goes to toSkip: its
// source row's timestamp may have bumped, but the semantic content did not,
// so no paid embedding call is warranted. Everything else (changed text or
// no prior record) goes to toEmbed.
//
// An empty prior map is the first-ever run: every chunk goes to toEmbed.
func splitByHash(chunks []chunk.Chunk, prior map[Key]string) (toEmbed, toSkip []Record) {
	for _, c := range chunks {
		hash := chunk.Hash(c.Text)
		rec := Record{Chunk: c, Hash: hash}

		key := Key{Table: c.SourceTable, SourceID: c.SourceID}
		if stored, ok := prior[key]; ok && stored == hash {
			toSkip = append(toSkip, rec)
			continue
		}
		toEmbed = append(toEmbed, rec)
	}
	return toEmbed, toSkip
}
