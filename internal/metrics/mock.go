package metrics

import "github.com/influxdata/influxdb-client-go/api/write"

// MockWriteAPI discards every point. It stands in when InfluxDB is not
// configured.
type MockWriteAPI struct{}

// WriteRecord discards a line protocol record.
func (m *MockWriteAPI) WriteRecord(line string) {}

// WritePoint discards a point.
func (m *MockWriteAPI) WritePoint(point *write.Point) {}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

// Errors returns a nil channel; no write ever fails.
func (m *MockWriteAPI) Errors() <-chan error { return nil }
