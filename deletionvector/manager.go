package deletionvector

import (
	"context"

	"github.com/nbiscaro/pg-mooncake/engineerr"
	"github.com/nbiscaro/pg-mooncake/lake"
	"github.com/nbiscaro/pg-mooncake/utils"
)

// Manager builds, fetches, and persists chunk-scoped deletion vectors on
// behalf of a single table (spec §4.4). It owns no state of its own beyond
// the lake.Service it talks to; bitmap bytes live in the lake.
type Manager struct {
	oid  uint32
	lake lake.Service
}

func NewManager(oid uint32, svc lake.Service) *Manager {
	return &Manager{oid: oid, lake: svc}
}

func (m *Manager) ref(fileName string) lake.FileRef {
	return lake.FileRef{OID: m.oid, FileName: fileName}
}

// FetchDV returns the bitmap for (fileName, chunkIndex) as of snapshot,
// empty if none has been written yet (spec §4.4 "Apply (read path)").
func (m *Manager) FetchDV(ctx context.Context, fileName string, chunkIndex int64, snapshot lake.Snapshot) (*Bitmap, error) {
	data, err := m.lake.FetchDV(ctx, m.ref(fileName), chunkIndex, snapshot)
	if err != nil {
		return nil, engineerr.New(engineerr.LakeFailure, engineerr.PhaseFetch, fileName, err)
	}
	bm, err := UnmarshalBitmap(data)
	if err != nil {
		return nil, engineerr.New(engineerr.MetadataFailure, engineerr.PhaseFetch, fileName, err)
	}
	return bm, nil
}

// ApplyDeletionVectors is the write path: it fetches the current bitmap for
// every (file, chunk) a deleted row_id touches as of snapshot, OR-merges the
// new bits in, persists the results, and then commits them to the lake under
// a single batch id (spec §4.4 steps 2-4).
//
// deletes maps a file name to the chunk index -> offsets-within-chunk to
// mark deleted, already bucketed by the caller (spec §4.4 step 1, row_id
// decomposition into file_number/chunk_index/offset).
func (m *Manager) ApplyDeletionVectors(ctx context.Context, snapshot lake.Snapshot, deletes map[string]map[int64][]uint32) error {
	batchID := utils.GenRandomID("dvbatch_")

	for fileName, chunks := range deletes {
		for chunkIndex, offsets := range chunks {
			current, err := m.FetchDV(ctx, fileName, chunkIndex, snapshot)
			if err != nil {
				return err
			}

			next := current.Clone()
			for _, offset := range offsets {
				next.SetDeleted(offset)
			}

			data, err := next.MarshalBinary()
			if err != nil {
				return engineerr.New(engineerr.MetadataFailure, engineerr.PhasePersist, fileName, err)
			}

			if err := m.lake.WriteDV(ctx, m.ref(fileName), chunkIndex, data); err != nil {
				return engineerr.New(engineerr.LakeFailure, engineerr.PhasePersist, fileName, err)
			}
		}
	}

	if err := m.lake.Commit(ctx, batchID); err != nil {
		return engineerr.New(engineerr.LakeFailure, engineerr.PhasePersist, "", err)
	}
	return nil
}
