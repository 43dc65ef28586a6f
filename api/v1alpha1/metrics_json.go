package v1alpha1

import "encoding/json"

func (m ResultMetrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["failedRecords"] = m.FailedRecords
	if m.TotalRecords > 0 {
		out["totalRecords"] = m.TotalRecords
	}
	return json.Marshal(out)
}

func (m *ResultMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ResultMetrics{}
	for k, v := range raw {
		switch k {
		case "failedRecords":
			m.FailedRecords = asInt(v)
		case "totalRecords":
			m.TotalRecords = asInt(v)
		default:
			if m.Extra == nil {
				m.Extra = map[string]any{}
			}
			m.Extra[k] = v
		}
	}
	return nil
}

func asInt(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
