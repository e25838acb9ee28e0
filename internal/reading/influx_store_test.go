package reading_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorasense/lorasense/internal/reading"
)

const latestCSV = `#datatype,string,long,dateTime:RFC3339,double,string,string
#group,false,false,false,false,true,false
#default,_result,,,,,
,result,table,_time,_value,_field,_measurement
,,0,2024-01-01T00:00:00Z,40.1,humidity,aht
,,1,2024-01-01T00:00:00Z,15,moisture,aht
,,2,2024-01-01T00:00:00Z,72.5,temperature,aht

`

// Temperature was written five minutes after the other two fields.
const staggeredCSV = `#datatype,string,long,dateTime:RFC3339,double,string,string
#group,false,false,false,false,true,false
#default,_result,,,,,
,result,table,_time,_value,_field,_measurement
,,0,2024-01-01T00:00:00Z,40.1,humidity,aht
,,1,2024-01-01T00:00:00Z,15,moisture,aht
,,2,2024-01-01T00:05:00Z,73,temperature,aht

`

const missingMoistureCSV = `#datatype,string,long,dateTime:RFC3339,double,string,string
#group,false,false,false,false,true,false
#default,_result,,,,,
,result,table,_time,_value,_field,_measurement
,,0,2024-01-01T00:00:00Z,40.1,humidity,aht
,,1,2024-01-01T00:00:00Z,72.5,temperature,aht

`

// fakeInflux answers /ping with pingStatus and /api/v2/query with queryBody.
type fakeInflux struct {
	pingStatus  int
	queryStatus int
	queryBody   string
	queries     atomic.Int32
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/ping"):
		w.WriteHeader(f.pingStatus)
	case strings.HasSuffix(r.URL.Path, "/query"):
		f.queries.Add(1)
		if f.queryStatus != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.queryStatus)
			_, _ = w.Write([]byte(`{"code":"invalid","message":"bucket \"sensors\" not found"}`))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(f.queryBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newInfluxStore(url string) *reading.InfluxStore {
	return reading.NewInfluxStore(reading.InfluxConfig{
		URL:         url,
		Token:       "test-token",
		Org:         "lorasense",
		Bucket:      "sensors",
		Measurement: "aht",
		Lookback:    time.Hour,
	})
}

func TestLatestFluxQuery(t *testing.T) {
	q := reading.LatestFluxQuery("sensors", "aht", 2*time.Hour)

	assert.Contains(t, q, `from(bucket: "sensors")`)
	assert.Contains(t, q, "range(start: -7200s)")
	assert.Contains(t, q, `r._measurement == "aht"`)
	assert.Contains(t, q, `group(columns: ["_field"])`)
	assert.Contains(t, q, "last()")
	assert.NotContains(t, q, "pivot")
}

func TestInfluxStore_Latest_Success(t *testing.T) {
	fake := &fakeInflux{pingStatus: http.StatusNoContent, queryStatus: http.StatusOK, queryBody: latestCSV}
	server := httptest.NewServer(fake)
	defer server.Close()

	latest := newInfluxStore(server.URL).Latest(context.Background())

	r, ok := latest.Reading()
	require.True(t, ok, "unexpected absence: %v", latest.Err())
	assert.Equal(t, 72.5, r.Temperature)
	assert.Equal(t, 40.1, r.Humidity)
	assert.Equal(t, 15.0, r.Moisture)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(r.Timestamp))
}

func TestInfluxStore_Latest_FieldsWrittenAtDifferentTimes(t *testing.T) {
	fake := &fakeInflux{pingStatus: http.StatusNoContent, queryStatus: http.StatusOK, queryBody: staggeredCSV}
	server := httptest.NewServer(fake)
	defer server.Close()

	latest := newInfluxStore(server.URL).Latest(context.Background())

	r, ok := latest.Reading()
	require.True(t, ok, "unexpected absence: %v", latest.Err())
	assert.Equal(t, 73.0, r.Temperature)
	assert.Equal(t, 40.1, r.Humidity)
	assert.Equal(t, 15.0, r.Moisture)
	assert.True(t, time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC).Equal(r.Timestamp))
}

func TestInfluxStore_Latest_MissingField(t *testing.T) {
	fake := &fakeInflux{pingStatus: http.StatusNoContent, queryStatus: http.StatusOK, queryBody: missingMoistureCSV}
	server := httptest.NewServer(fake)
	defer server.Close()

	latest := newInfluxStore(server.URL).Latest(context.Background())

	assert.Equal(t, reading.ReasonQueryFailed, latest.Reason())
	assert.ErrorContains(t, latest.Err(), "field moisture: missing value")
}

func TestInfluxStore_Latest_NoRecords(t *testing.T) {
	fake := &fakeInflux{pingStatus: http.StatusNoContent, queryStatus: http.StatusOK, queryBody: ""}
	server := httptest.NewServer(fake)
	defer server.Close()

	latest := newInfluxStore(server.URL).Latest(context.Background())

	assert.Equal(t, reading.ReasonNoRecords, latest.Reason())
}

func TestInfluxStore_Latest_QueryFailure(t *testing.T) {
	fake := &fakeInflux{pingStatus: http.StatusNoContent, queryStatus: http.StatusNotFound}
	server := httptest.NewServer(fake)
	defer server.Close()

	latest := newInfluxStore(server.URL).Latest(context.Background())

	assert.Equal(t, reading.ReasonQueryFailed, latest.Reason())
	assert.Error(t, latest.Err())
}

func TestInfluxStore_Latest_ConnectionFailureSkipsQuery(t *testing.T) {
	fake := &fakeInflux{pingStatus: http.StatusServiceUnavailable, queryStatus: http.StatusOK, queryBody: latestCSV}
	server := httptest.NewServer(fake)
	defer server.Close()

	store := newInfluxStore(server.URL)
	latest := store.Latest(context.Background())

	assert.Equal(t, reading.ReasonConnectionFailed, latest.Reason())
	assert.Error(t, latest.Err())
	assert.Equal(t, int32(0), fake.queries.Load())
	assert.Error(t, store.Ping(context.Background()))
}

func TestInfluxStore_Name(t *testing.T) {
	assert.Equal(t, "influx", newInfluxStore("http://localhost:8086").Name())
}
