package buzz

import (
	"github.com/mdevlab/buzzroom/go/internal/models"
)

// ProjectQueue turns store-ordered buzz rows into the derived queue, each
// entry annotated with its delay behind the current first entry. This is
// the single place deltas are computed: full clears, partial clears and
// fresh inserts all re-present through it, so a removal anywhere in the
// queue yields deltas relative to the new head rather than stale values.
func ProjectQueue(rows []QueueRow) []models.QueueEntry {
	if len(rows) == 0 {
		return []models.QueueEntry{}
	}

	first := rows[0].TimestampMS
	entries := make([]models.QueueEntry, len(rows))
	for i, row := range rows {
		entries[i] = models.QueueEntry{
			PlayerID:    row.PlayerID,
			PlayerName:  row.PlayerName,
			TimestampMS: row.TimestampMS,
			DeltaMS:     row.TimestampMS - first,
		}
	}
	return entries
}
