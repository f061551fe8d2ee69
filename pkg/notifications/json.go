package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

var _ json.Marshaler = &Data{}

// jsonMap is a type alias for a JSON-compatible map.
type jsonMap = map[string]any

// MarshalJSON implements json.Marshaler for Data.
//
// Returns:
//   - []byte: JSON-encoded data.
//   - error: Non-nil if marshaling fails, nil on success.
func (d Data) MarshalJSON() ([]byte, error) {
	var report jsonMap

	if d.Report != nil {
		report = jsonMap{
			"dryRun":     d.Report.DryRun(),
			"scanned":    marshalImages(d.Report.Scanned()),
			"fresh":      marshalImages(d.Report.Fresh()),
			"stale":      marshalImages(d.Report.Stale()),
			"updated":    marshalImages(d.Report.Updated()),
			"failed":     marshalImages(d.Report.Failed()),
			"skipped":    marshalImages(d.Report.Skipped()),
			"containers": marshalContainers(d.Report.Containers()),
		}
	}

	bytes, err := json.Marshal(jsonMap{
		"report": report,
		"title":  d.Title,
		"host":   d.Host,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal notification data to JSON")

		return nil, fmt.Errorf("%w: %w", errMarshalFailed, err)
	}

	return bytes, nil
}

// marshalImages converts image reports to JSON-compatible maps.
func marshalImages(reports []types.ImageReport) []jsonMap {
	jsonReports := make([]jsonMap, len(reports))

	for i, report := range reports {
		jsonReports[i] = jsonMap{
			"id":         report.ID().ShortID(),
			"name":       report.Name(),
			"currentTag": report.CurrentTag(),
			"targetTag":  report.TargetTag(),
			"state":      report.State(),
		}

		if errorMessage := report.Error(); errorMessage != "" {
			jsonReports[i]["error"] = errorMessage
		}
	}

	return jsonReports
}

// marshalContainers converts container reports to JSON-compatible maps.
func marshalContainers(reports []types.ContainerReport) []jsonMap {
	jsonReports := make([]jsonMap, len(reports))

	for i, report := range reports {
		jsonReports[i] = jsonMap{
			"id":        report.ID().ShortID(),
			"newId":     report.NewID().ShortID(),
			"name":      report.Name(),
			"imageName": report.ImageName(),
			"state":     report.State(),
		}

		if errorMessage := report.Error(); errorMessage != "" {
			jsonReports[i]["error"] = errorMessage
		}
	}

	return jsonReports
}
