package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"promptforge/internal/core/types"
)

// ReadJSONL reads one record per line into an in-memory dataset. Column
// order is the first-seen order across records. features may be nil.
func ReadJSONL(r io.Reader, features map[string]map[int]string) (*types.Dataset, error) {
	ds := &types.Dataset{Features: features}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("error parsing record on line %d: %w", line, err)
		}

		record := make(types.Record, len(fields))
		for column, rawValue := range fields {
			value, err := decodeValue(rawValue)
			if err != nil {
				return nil, fmt.Errorf("error decoding column '%s' on line %d: %w", column, line, err)
			}
			record[column] = value
			if _, ok := seen[column]; !ok {
				seen[column] = struct{}{}
				ds.Columns = append(ds.Columns, column)
			}
		}
		ds.Records = append(ds.Records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading records: %w", err)
	}

	return ds, nil
}

func ReadJSONLFile(path string, features map[string]map[int]string) (*types.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset file '%s': %w", path, err)
	}
	defer f.Close()
	return ReadJSONL(f, features)
}

// WriteJSONL writes one record per line, keeping the dataset column order
// within each object.
func WriteJSONL(w io.Writer, ds *types.Dataset) error {
	bw := bufio.NewWriter(w)
	for i, record := range ds.Records {
		fields := make(map[string]any, len(record))
		for column, value := range record {
			fields[column] = encodeValue(value)
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("error encoding record %d: %w", i, err)
		}
		if _, err := bw.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("error writing record %d: %w", i, err)
		}
	}
	return bw.Flush()
}

func WriteJSONLFile(path string, ds *types.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating dataset file '%s': %w", path, err)
	}
	defer f.Close()
	return WriteJSONL(f, ds)
}

// decodeValue maps a JSON field onto the value union: strings and numbers
// become scalars, homogeneous arrays become token or id lists, and objects
// with text/start lists become QA answers.
func decodeValue(raw json.RawMessage) (types.Value, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return types.Scalar(s), nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != math.Trunc(f) {
			return types.Scalar(string(raw)), nil
		}
		return types.Int(int(f)), nil
	}

	var tokens []string
	if err := json.Unmarshal(raw, &tokens); err == nil {
		return types.TokenList(tokens), nil
	}

	var ids []int
	if err := json.Unmarshal(raw, &ids); err == nil {
		return types.IntList(ids), nil
	}

	var answer types.Answer
	if err := json.Unmarshal(raw, &answer); err == nil && len(answer.Text) > 0 {
		return answer, nil
	}

	return nil, fmt.Errorf("unsupported value: %s", string(raw))
}

func encodeValue(v types.Value) any {
	switch t := v.(type) {
	case types.Scalar:
		return string(t)
	case types.Int:
		return int(t)
	case types.TokenList:
		return []string(t)
	case types.IntList:
		return []int(t)
	case types.Answer:
		return t
	case *types.SpanMap:
		return t.Render()
	default:
		return v.Render()
	}
}
