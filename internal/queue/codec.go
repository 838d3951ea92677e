package queue

import (
	"bytes"
	"fmt"
	"time"

	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	kindMap    = "map"
	kindScalar = "scalar"
	kindError  = "error"
)

// jobDefinition is stored under job:<id> until the job finishes.
type jobDefinition struct {
	Function      string         `msgpack:"function"`
	Args          []any          `msgpack:"args"`
	Kwargs        map[string]any `msgpack:"kwargs"`
	Tries         int            `msgpack:"tries"`
	EnqueueTimeMs int64          `msgpack:"enqueue_time_ms"`
	Score         int64          `msgpack:"score"`
}

// resultRecord is stored under result:<id> once the job finished.
type resultRecord struct {
	Function      string         `msgpack:"function"`
	Args          []any          `msgpack:"args"`
	Kwargs        map[string]any `msgpack:"kwargs"`
	Tries         int            `msgpack:"tries"`
	EnqueueTimeMs int64          `msgpack:"enqueue_time_ms"`
	StartTimeMs   int64          `msgpack:"start_time_ms"`
	FinishTimeMs  int64          `msgpack:"finish_time_ms"`
	Success       bool           `msgpack:"success"`
	Kind          string         `msgpack:"kind"`
	Value         any            `msgpack:"value"`
	Queue         string         `msgpack:"queue"`
}

func encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// decode reads numbers as int64, uint64 or float64 rather than the narrowest type.
func decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

func encodeResult(r types.Result) (kind string, value any) {
	switch res := r.(type) {
	case types.MapResult:
		return kindMap, map[string]any(res)
	case types.ScalarResult:
		return kindScalar, res.Value
	case types.ErrorResult:
		return kindError, res.Message
	default:
		return kindScalar, nil
	}
}

func decodeResult(kind string, value any) (types.Result, error) {
	switch kind {
	case kindMap:
		if value == nil {
			return types.MapResult{}, nil
		}
		m, err := stringKeyed(value)
		if err != nil {
			return nil, err
		}
		return types.MapResult(m), nil
	case kindScalar:
		return types.ScalarResult{Value: value}, nil
	case kindError:
		msg, _ := value.(string)
		return types.ErrorResult{Message: msg}, nil
	default:
		return nil, fmt.Errorf("unknown result kind %q", kind)
	}
}

func stringKeyed(value any) (map[string]any, error) {
	switch m := value.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("map result holds %T", value)
	}
}

func (d *jobDefinition) transient(jobID, queue string) *types.TransientJob {
	return &types.TransientJob{
		JobID:       jobID,
		Function:    d.Function,
		Args:        d.Args,
		Kwargs:      d.Kwargs,
		EnqueueTime: fromMillis(d.EnqueueTimeMs),
		Attempts:    d.Tries,
		Queue:       queue,
	}
}

func (r *resultRecord) transient(jobID string) (*types.TransientJob, error) {
	result, err := decodeResult(r.Kind, r.Value)
	if err != nil {
		return nil, err
	}
	start := fromMillis(r.StartTimeMs)
	finish := fromMillis(r.FinishTimeMs)
	return &types.TransientJob{
		JobID:       jobID,
		Function:    r.Function,
		Args:        r.Args,
		Kwargs:      r.Kwargs,
		EnqueueTime: fromMillis(r.EnqueueTimeMs),
		StartTime:   &start,
		FinishTime:  &finish,
		Attempts:    r.Tries,
		Success:     r.Success,
		Result:      result,
		Queue:       r.Queue,
	}, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
