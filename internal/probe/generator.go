package probe

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/skillswap/internal/domain/model"
)

// duplicateEvery makes every n-th generated event a redelivery of the one
// before it.
const duplicateEvery = 10

var eventKinds = []model.ListingEventKind{model.ListingAdded, model.ListingUpdated, model.ListingRemoved}

// GenerateEvents builds n listing events cycling over skills and kinds.
// Every tenth event repeats the previous event id so the server's
// deduplication is exercised. It returns nil when skills is empty.
func GenerateEvents(n int, skills []string) []model.ListingEvent {
	if n <= 0 || len(skills) == 0 {
		return nil
	}
	now := time.Now().UTC()
	events := make([]model.ListingEvent, n)
	for i := range events {
		if i > 0 && i%duplicateEvery == 0 {
			events[i] = events[i-1]
			continue
		}
		events[i] = model.ListingEvent{
			EventID:   uuid.NewString(),
			MemberID:  "probe-" + uuid.NewString()[:8],
			SkillName: skills[i%len(skills)],
			Kind:      eventKinds[i%len(eventKinds)],
			TS:        now,
		}
	}
	return events
}
