package monitoringjson

import (
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/bayneri/slider/internal/monitoring"
	"github.com/bayneri/slider/internal/rules"
)

// Write renders the alert policies of groups as a JSON document that
// gcloud and the Cloud Monitoring API accept policy by policy.
func Write(w io.Writer, groups []rules.Group, opts monitoring.Options) error {
	var alerts []interface{}
	for _, policy := range monitoring.BuildAlertPolicies(groups, opts) {
		item, err := protoToInterface(policy)
		if err != nil {
			return fmt.Errorf("encode alert policy %s: %w", policy.GetDisplayName(), err)
		}
		alerts = append(alerts, item)
	}
	if alerts == nil {
		alerts = []interface{}{}
	}

	payload := map[string]interface{}{
		"alertPolicies": alerts,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func protoToInterface(msg proto.Message) (interface{}, error) {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
