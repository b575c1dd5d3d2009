// pkg/api/flowcell_v1.go
package api

// FlowCellV1 is the stable JSON schema of a flow-cell record in the
// tracking service. Keep fields, names, and types stable. Add new fields
// only with ",omitempty".
type FlowCellV1 struct {
	UUID               string `json:"sodar_uuid,omitempty"`
	RunDate            string `json:"run_date"`
	RunNumber          int    `json:"run_number"`
	Slot               string `json:"slot"`
	VendorID           string `json:"vendor_id"`
	Label              string `json:"label,omitempty"`
	ManualLabel        string `json:"manual_label,omitempty"`
	Description        string `json:"description,omitempty"`
	SequencingMachine  string `json:"sequencing_machine"`
	NumLanes           int    `json:"num_lanes"`
	Operator           string `json:"operator,omitempty"`
	RTAVersion         int    `json:"rta_version"`
	StatusSequencing   string `json:"status_sequencing"`
	StatusConversion   string `json:"status_conversion"`
	StatusDelivery     string `json:"status_delivery"`
	DeliveryType       string `json:"delivery_type"`
	PlannedReads       string `json:"planned_reads,omitempty"`
	CurrentReads       string `json:"current_reads,omitempty"`
	IndexHistogramSize int    `json:"index_histogram_count"`
}

// LaneIndexHistogramV1 is the stable schema of one submitted histogram.
type LaneIndexHistogramV1 struct {
	UUID             string         `json:"sodar_uuid,omitempty"`
	Flowcell         string         `json:"flowcell"`
	Lane             int            `json:"lane"`
	IndexReadNo      int            `json:"index_read_no"`
	SampleSize       int            `json:"sample_size"`
	MinIndexFraction float64        `json:"min_index_fraction"`
	Histogram        map[string]int `json:"histogram"`
}
