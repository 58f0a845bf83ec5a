package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBlacklistPurge removes expired token blacklist entries.
	TaskBlacklistPurge = "auth:blacklist_purge"
)

// BlacklistPurgePayload parameterises a purge run. Currently empty; the job
// always purges everything past expiry at run time.
type BlacklistPurgePayload struct{}

// NewBlacklistPurgeTask constructs an Asynq task for the purge job.
func NewBlacklistPurgeTask(payload BlacklistPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBlacklistPurge, data), nil
}
