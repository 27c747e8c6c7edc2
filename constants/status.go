package constants

// ItemStatus is the lifecycle state of one queued label photo.
type ItemStatus string

// Stable values (these exact strings are returned by the HTTP API).
const (
	ItemStatusIdle      ItemStatus = "IDLE"      // enqueued, waiting for a batch run
	ItemStatusAnalyzing ItemStatus = "ANALYZING" // extraction in flight
	ItemStatusDone      ItemStatus = "DONE"      // fields attached
	ItemStatusError     ItemStatus = "ERROR"     // extraction exhausted retries
)

// RecordStatus is the canonical status for rows in router_queue.
type RecordStatus string

const (
	// RecordStatusPending marks a record as ready for the provisioning script.
	RecordStatusPending RecordStatus = "PENDING"
)

// DefaultTargetSSID is the placeholder target network name given to every
// freshly extracted record until the operator changes it.
const DefaultTargetSSID = "NS-Room-Waitlist"
