package collector

import (
	"bufio"
	"bytes"
	"encoding/json"

	"europarl-collector/lib/scrapers/europarl"
)

// the dataset lives on the hub as one jsonl file under the conventional
// train split path
const datasetPath = "data/train.jsonl"

func decodeDataset(content []byte) ([]europarl.Record, error) {
	var records []europarl.Record

	scanner := bufio.NewScanner(bytes.NewReader(content))
	// a single record carries the full text of a sitting, the default
	// scanner limit is far too small for that
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record europarl.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func encodeDataset(records []europarl.Record) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return nil, err
		}
	}
	return buffer.Bytes(), nil
}

// mergeRecords appends the incoming records whose urls are not in the
// dataset yet. existing records keep their position, reruns never reorder
// or rewrite what is already published.
func mergeRecords(existing []europarl.Record, incoming []europarl.Record) ([]europarl.Record, int) {
	seen := make(map[string]bool, len(existing))
	for _, record := range existing {
		seen[record.URL] = true
	}

	merged := existing
	added := 0
	for _, record := range incoming {
		if seen[record.URL] {
			continue
		}
		seen[record.URL] = true
		merged = append(merged, record)
		added++
	}
	return merged, added
}
