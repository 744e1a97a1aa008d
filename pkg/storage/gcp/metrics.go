// File: pkg/storage/gcp/metrics.go
package gcp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cabinet/pkg/storage"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	monitoringpb "cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const metricTimeWindow = 72 * time.Hour

// ErrMetricsNotFound indicates that the usage metrics could not be found within the queried time range
// This often happens for new buckets that haven't reported metrics yet
var ErrMetricsNotFound = errors.New("usage metrics not found in the monitoring window")

// Usage reports stored bytes. A cabinet that owns the whole bucket asks Cloud
// Monitoring; a prefixed cabinet, or one without a project, sums its listing.
func (g *GCPStorage) Usage(ctx context.Context) (int64, error) {
	if g.keyPrefix != "" || g.projectID == "" {
		return storage.TotalSize(ctx, g, "")
	}

	usage, err := g.getBucketUsage(ctx)
	if err == nil {
		return usage, nil
	}
	g.logger.Warn("Falling back to listing for bucket usage", "bucket", g.bucket, "error", err)
	return storage.TotalSize(ctx, g, "")
}

func (g *GCPStorage) getBucketUsage(ctx context.Context) (int64, error) {
	g.logger.Debug("Fetching GCP bucket usage metric via Monitoring API (Aggregated)", "bucket", g.bucket)
	client, err := monitoring.NewMetricClient(ctx, g.opts...)
	if err != nil {
		return -1, fmt.Errorf("failed to create monitoring client: %w", err)
	}
	defer client.Close()

	it := client.ListTimeSeries(ctx, usageRequest(g.projectID, g.bucket, time.Now()))

	// Since we aggregated everything into a single point and summed across series,
	// we expect exactly one time series in the response
	resp, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return -1, ErrMetricsNotFound
	}
	if err != nil {
		return -1, fmt.Errorf("error getting metric data for bucket %s: %w", g.bucket, err)
	}

	if len(resp.GetPoints()) > 0 {
		return extractUsageValue(resp.GetPoints()[0].GetValue()), nil
	}
	return -1, ErrMetricsNotFound
}

func usageRequest(projectID, bucket string, endTime time.Time) *monitoringpb.ListTimeSeriesRequest {
	startTime := endTime.Add(-metricTimeWindow)

	return &monitoringpb.ListTimeSeriesRequest{
		Name:   fmt.Sprintf("projects/%s", projectID),
		Filter: fmt.Sprintf(`metric.type="storage.googleapis.com/storage/v2/total_bytes" AND resource.labels.bucket_name="%s"`, bucket),
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(startTime),
			EndTime:   timestamppb.New(endTime),
		},
		Aggregation: &monitoringpb.Aggregation{
			AlignmentPeriod:    durationpb.New(metricTimeWindow),
			PerSeriesAligner:   monitoringpb.Aggregation_ALIGN_MEAN,
			CrossSeriesReducer: monitoringpb.Aggregation_REDUCE_SUM,
			GroupByFields:      []string{"resource.labels.bucket_name"},
		},
	}
}

func extractUsageValue(pointValue *monitoringpb.TypedValue) int64 {
	if pointValue == nil {
		return 0
	}

	switch v := pointValue.Value.(type) {
	case *monitoringpb.TypedValue_DoubleValue:
		return int64(math.Round(v.DoubleValue))
	case *monitoringpb.TypedValue_Int64Value:
		return v.Int64Value
	default:
		return 0
	}
}
