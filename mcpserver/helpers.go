package mcpserver

import (
	"encoding/json/v2"
	"time"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/mcperrors"
)

func unmarshalParams(data jsonrpc.ResultValue, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func invalidParams(err error) *mcperrors.DomainError {
	return mcperrors.InvalidParams("%s", err.Error())
}

// taskParamsEnvelope mirrors the `params.task` augmentation of SPEC_FULL.md §6.
type taskParamsEnvelope struct {
	Task *taskMeta `json:"task,omitempty"`
}

type taskMeta struct {
	TTLMillis *int64 `json:"ttl,omitempty"`
}

func (t *taskMeta) ttlDuration() *time.Duration {
	if t == nil || t.TTLMillis == nil {
		return nil
	}
	d := time.Duration(*t.TTLMillis) * time.Millisecond
	return &d
}

// decodeTaskMetadata reports whether req.Params carries a params.task augmentation and, if so,
// decodes it.
func decodeTaskMetadata(params jsonrpc.ResultValue) (*taskMeta, bool, error) {
	if len(params) == 0 {
		return nil, false, nil
	}
	var env taskParamsEnvelope
	if err := json.Unmarshal(params, &env); err != nil {
		return nil, false, err
	}
	if env.Task == nil {
		return nil, false, nil
	}
	return env.Task, true, nil
}
