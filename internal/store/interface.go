package store

// RecordingStore defines the persistence operations the rest of the
// application depends on. Consumers should depend on this interface rather
// than the concrete *DB type to facilitate testing with mocks.
type RecordingStore interface {
	CreateRecording(rec *Recording) error
	SaveRecording(rec *Recording) error
	MaxRecordingID() (int64, error)
	AppendSample(s Sample) error
	CreateSamples(samples []Sample) error
	GetRecording(id int64) (*Recording, error)
	LatestRecording() (*Recording, error)
	ListRecordings() ([]Recording, error)
	ListSamplesByRecording(id int64) ([]Sample, error)
	CountSamples(id int64) (int64, error)
	Close() error
}

// Verify *DB satisfies RecordingStore at compile time.
var _ RecordingStore = (*DB)(nil)
