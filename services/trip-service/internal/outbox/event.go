package outbox

// Event is the domain event envelope written to the outbox table inside the
// same transaction as the state change it describes. The Kafka topic name
// equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by the trip service.
const (
	EventActorClaimed = "trip.actor.claimed.v1"
	EventMemberJoined = "trip.group.member_joined.v1"
	EventAvailability = "trip.availability.created.v1"
)
