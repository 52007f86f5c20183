package influx

import (
	"fmt"
	"strconv"
	"strings"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/frontierstation/damagecast/internal/util"
)

// ParseMetric converts the arguments of a :METRIC: command into a bucket
// name and point.
//
// Layout: 0 = bucket, 1 = measurement, then any number of
// "tag::<name>::<value>" and "field::<type>::<name>::<value>" entries, where
// type is string, int or float.
func ParseMetric(data []string) (bucket string, point *influxdb2_write.Point, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("metric needs a bucket and a measurement, got %d args", len(data))
	}
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	bucket = data[0]
	point = influxdb2_write.NewPointWithMeasurement(data[1])
	fields := 0

	for _, entry := range data[2:] {
		parts := strings.Split(entry, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			optionalTag(point, parts[1], parts[2])

		case parts[0] == "field" && len(parts) >= 4:
			name, value := parts[2], parts[3]
			switch parts[1] {
			case "string":
				point.AddField(name, value)
			case "int":
				v, err := strconv.Atoi(value)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to int: %w", value, err)
				}
				point.AddField(name, v)
			case "float":
				v, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to float: %w", value, err)
				}
				point.AddField(name, v)
			default:
				continue
			}
			fields++
		}
	}

	if fields == 0 {
		return "", nil, fmt.Errorf("metric %q has no fields", data[1])
	}
	return bucket, point, nil
}
