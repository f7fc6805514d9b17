package survival

// Request is the invocation payload as received from a transport. Values are kept
// raw so that the validator can name the first offending field.
type Request struct {
	Times          []float64   `json:"times"`
	Events         []float64   `json:"events"`
	ValuesByRecord [][]float64 `json:"values_by_record"`
}

// NumSubjects returns the number of subjects implied by the times vector
func (r *Request) NumSubjects() int { return len(r.Times) }

// NumRecords returns the number of records (rows of values_by_record)
func (r *Request) NumRecords() int { return len(r.ValuesByRecord) }

// Design is the validated survival design shared by every record of a batch.
// INVARIANTS:
// - len(Times) == len(Events) >= 2
// - Times finite and non-negative, Events in {0,1} with at least one 1
type Design struct {
	Times  []float64
	Events []int
}

// NumSubjects returns the number of subjects in the design
func (d *Design) NumSubjects() int { return len(d.Times) }

// NumEvents counts observed (uncensored) events
func (d *Design) NumEvents() int {
	n := 0
	for _, e := range d.Events {
		n += e
	}
	return n
}

// RecordValues holds one record's predictor value per subject
type RecordValues []float64

// Batch is a validated request: one design and the records to fit against it
type Batch struct {
	Design  Design
	Records []RecordValues
}

// FittedModel is the per-record outcome of a Cox fit. Only HazardRatio and PValue
// leave the core; the rest is diagnostic.
type FittedModel struct {
	Coefficient        float64
	StandardError      float64 // robust (sandwich)
	NaiveStandardError float64 // inverse information
	HazardRatio        float64
	ZScore             float64
	PValue             float64
	LogLikelihood      float64
	Iterations         int
}

// ResultRecord is the wire form of one fitted record
type ResultRecord struct {
	Hazard float64 `json:"hazard"`
	PValue float64 `json:"pval"`
}

// BatchResult is the success response; StatisticsList is in input record order
type BatchResult struct {
	StatisticsList []ResultRecord `json:"statistics_list"`
}
