package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// RawJob represents an unprocessed message from the source topic.
type RawJob struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Job asks for one local input file to be validated.
type Job struct {
	ID        string `json:"id"`
	InputFile string `json:"input_file"`
}

// ParseJob decodes a job message. The id falls back to the message key, then
// to the input file's base name.
func ParseJob(raw RawJob) (Job, error) {
	var job Job
	if err := json.Unmarshal(raw.Value, &job); err != nil {
		return Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	job.InputFile = strings.TrimSpace(job.InputFile)
	if job.InputFile == "" {
		return Job{}, errors.New("job has no input_file")
	}
	if job.ID == "" {
		job.ID = string(raw.Key)
	}
	if job.ID == "" {
		job.ID = filepath.Base(job.InputFile)
	}
	return job, nil
}
