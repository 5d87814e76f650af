package rooms

import (
	"sort"

	"github.com/aukilabs/roomlayout/protocol"
)

// A room participant.
type Participant struct {
	ID        uint32
	Responder protocol.ResponseSender
}

func participantIDs(participants []*Participant) []uint32 {
	ids := make([]uint32, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}
