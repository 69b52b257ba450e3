package core

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"promptforge/internal/core/types"
	"promptforge/pkg/api"
)

// LabelsToText replaces the integer label id at labelColumn with its string
// name. If id2label is nil the dataset's own feature schema for the column
// is used. Records whose id has no entry are skipped and reported as
// UnknownLabelID issues. The returned label options list the distinct names
// in mapping declaration order (ascending id), not alphabetical.
func LabelsToText(ds *types.Dataset, labelColumn string, id2label map[int]string) (*types.Dataset, []string, []api.Issue, error) {
	if id2label == nil {
		id2label = ds.Features[labelColumn]
	}
	if len(id2label) == 0 {
		return nil, nil, nil, fmt.Errorf("no id2label mapping available for column '%s'", labelColumn)
	}

	var issues []api.Issue
	out := make([]types.Record, 0, len(ds.Records))

	for i, record := range ds.Records {
		id, ok := record[labelColumn].(types.Int)
		if !ok {
			// already textual, keep as is
			out = append(out, record)
			continue
		}
		name, ok := id2label[int(id)]
		if !ok {
			slog.Warn("unknown label id", "column", labelColumn, "id", int(id), "record", i)
			issues = append(issues, api.Issue{
				Kind:   api.UnknownLabelID,
				Record: i,
				Detail: fmt.Sprintf("id %d has no entry in the label mapping", int(id)),
			})
			continue
		}
		converted := record.Clone()
		converted[labelColumn] = types.Scalar(name)
		out = append(out, converted)
	}

	return ds.WithRecords(out), LabelOptions(id2label), issues, nil
}

// LabelOptions lists the distinct label names of a mapping in ascending id
// order, with BIO prefixes stripped and the O tag removed.
func LabelOptions(id2label map[int]string) []string {
	ids := make([]int, 0, len(id2label))
	for id := range id2label {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	seen := make(map[string]struct{}, len(ids))
	options := make([]string, 0, len(ids))
	for _, id := range ids {
		name := StripBIOPrefix(id2label[id])
		if name == "O" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		options = append(options, name)
	}
	return options
}

// ExpandLabelMapping rewrites the label names of a BIO id2label mapping
// using expanded human-readable names (e.g. PER -> PERSON), preserving the
// B-/I- prefixes. Names without an expansion are kept unchanged.
func ExpandLabelMapping(id2label map[int]string, expanded map[string]string) map[int]string {
	out := make(map[int]string, len(id2label))
	for id, tag := range id2label {
		prefix, name, ok := splitBIOTag(tag)
		if !ok {
			out[id] = tag
			continue
		}
		if replacement, found := expanded[name]; found {
			out[id] = prefix + "-" + replacement
		} else {
			out[id] = tag
		}
	}
	return out
}

// StripBIOPrefix removes a leading B- or I- marker from a tag.
func StripBIOPrefix(tag string) string {
	if _, name, ok := splitBIOTag(tag); ok {
		return name
	}
	return tag
}

func splitBIOTag(tag string) (prefix, name string, ok bool) {
	if strings.HasPrefix(tag, "B-") || strings.HasPrefix(tag, "I-") {
		return tag[:1], tag[2:], true
	}
	return "", tag, false
}
