package db

type Series struct {
	Key       string
	Source    string
	Label     string
	Frequency string
	UpdatedAt int64
	Count     int64
}

type Observation struct {
	SeriesKey string
	Date      string
	Value     string
}

type FetchRun struct {
	ID         string
	Source     string
	SeriesKey  string
	RangeStart string
	RangeEnd   string
	StartedAt  int64
	FinishedAt int64
	Count      int64
	Error      string
}
