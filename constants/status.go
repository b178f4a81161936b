package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // queued for processing
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusTextOK  JobStatus = "TEXT_OK" // stage 1 completed (text extracted)
	JobStatusLLMOK   JobStatus = "LLM_OK"  // stage 2 completed (fields extracted)
	JobStatusDone    JobStatus = "DONE"    // persisted (or persistence disabled)
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)
