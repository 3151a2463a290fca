package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexBool accepts JSON booleans as well as 0/1 and their string forms.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	raw := strings.ToLower(strings.Trim(strings.TrimSpace(string(data)), `"`))
	switch raw {
	case "true", "1":
		*b = true
	case "false", "0":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", string(data))
	}
	return nil
}

// FlexString accepts JSON strings or numbers.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return strings.TrimSpace(string(s)) }

const (
	CallbackStatusSuccess = "success"
	CallbackStatusFailed  = "failed"
	DefaultMLError        = "Unknown ML error"
)

type ResultsPayload struct {
	DatasetID    int64          `json:"dataset_id"`
	JobID        string         `json:"job_id"`
	Status       string         `json:"status"`
	Results      []ResultRecord `json:"results"`
	ErrorMessage *string        `json:"error_message"`
}

type ResultRecord struct {
	TransactionID FlexString  `json:"transaction_id"`
	FraudScore    *float64    `json:"fraud_score"`
	IsFraud       *FlexBool   `json:"is_fraud"`
	IsAnomaly     *FlexBool   `json:"is_anomaly"`
	VendorID      *FlexString `json:"vendor_id"`
	VendorName    *string     `json:"vendor_name"`
	Region        *string     `json:"region"`
	Amount        *float64    `json:"amount"`
}

type ExplanationsPayload struct {
	DatasetID    int64               `json:"dataset_id"`
	Explanations []ExplanationRecord `json:"explanations"`
}

type FeatureRecord struct {
	Name   string   `json:"name"`
	Value  *float64 `json:"value"`
	Impact *float64 `json:"impact"`
}

type ExplanationRecord struct {
	TransactionID FlexString      `json:"transaction_id"`
	TopFeatures   []FeatureRecord `json:"top_features"`
	ShapValues    json.RawMessage `json:"shap_values"`
	BaseValue     *float64        `json:"base_value"`
}

// Validate reports every offending field keyed by its payload path.
func (p *ResultsPayload) Validate() map[string]string {
	fields := map[string]string{}
	if p.DatasetID <= 0 {
		fields["dataset_id"] = "dataset_id is required and must be a positive integer"
	}
	if strings.TrimSpace(p.JobID) == "" {
		fields["job_id"] = "job_id is required"
	}
	switch p.Status {
	case CallbackStatusSuccess:
		if len(p.Results) == 0 {
			fields["results"] = "results are required when status is success"
		}
	case CallbackStatusFailed:
	default:
		fields["status"] = "status must be one of: success, failed"
	}
	if p.Status != CallbackStatusSuccess {
		return fields
	}
	seen := make(map[string]int, len(p.Results))
	for i, r := range p.Results {
		prefix := "results[" + strconv.Itoa(i) + "]."
		txID := r.TransactionID.String()
		if txID == "" {
			fields[prefix+"transaction_id"] = "transaction_id is required"
		} else if first, dup := seen[txID]; dup {
			fields[prefix+"transaction_id"] = fmt.Sprintf("duplicate transaction_id (first seen at results[%d])", first)
		} else {
			seen[txID] = i
		}
		if r.FraudScore == nil {
			fields[prefix+"fraud_score"] = "fraud_score is required"
		} else if *r.FraudScore < 0 || *r.FraudScore > 1 {
			fields[prefix+"fraud_score"] = "fraud_score must be between 0 and 1"
		}
		if r.IsFraud == nil {
			fields[prefix+"is_fraud"] = "is_fraud is required"
		}
		if r.IsAnomaly == nil {
			fields[prefix+"is_anomaly"] = "is_anomaly is required"
		}
	}
	return fields
}

func (p *ExplanationsPayload) Validate() map[string]string {
	fields := map[string]string{}
	if p.DatasetID <= 0 {
		fields["dataset_id"] = "dataset_id is required and must be a positive integer"
	}
	if len(p.Explanations) == 0 {
		fields["explanations"] = "explanations are required"
	}
	seen := make(map[string]int, len(p.Explanations))
	for i, e := range p.Explanations {
		prefix := "explanations[" + strconv.Itoa(i) + "]."
		txID := e.TransactionID.String()
		if txID == "" {
			fields[prefix+"transaction_id"] = "transaction_id is required"
		} else if first, dup := seen[txID]; dup {
			fields[prefix+"transaction_id"] = fmt.Sprintf("duplicate transaction_id (first seen at explanations[%d])", first)
		} else {
			seen[txID] = i
		}
		if len(e.TopFeatures) == 0 {
			fields[prefix+"top_features"] = "top_features must be a non-empty list"
		}
		for j, f := range e.TopFeatures {
			fp := prefix + "top_features[" + strconv.Itoa(j) + "]."
			if strings.TrimSpace(f.Name) == "" {
				fields[fp+"name"] = "name is required"
			}
			if f.Value == nil {
				fields[fp+"value"] = "value is required"
			}
			if f.Impact == nil {
				fields[fp+"impact"] = "impact is required"
			}
		}
		if raw := bytes.TrimSpace(e.ShapValues); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if raw[0] != '[' && raw[0] != '{' {
				fields[prefix+"shap_values"] = "shap_values must be an array or object"
			}
		}
	}
	return fields
}
