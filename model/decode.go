package model

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DecodeTrafficRecords decodes a JSON array of traffic records. Records that
// fail shape validation are skipped and reported in the returned error
// slice; one bad record never discards the batch. A non-array document
// yields a single InvalidRecordError and no records.
func DecodeTrafficRecords(data []byte) ([]TrafficRecord, []error) {
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, []error{&InvalidRecordError{Index: -1, Reason: "input is not a JSON array"}}
	}

	var (
		records []TrafficRecord
		errs    []error
	)
	for i, el := range root.Array() {
		if !el.IsObject() {
			errs = append(errs, &InvalidRecordError{Index: i, Reason: "record is not a JSON object"})
			continue
		}
		endpoint := el.Get("endpoint").String()
		if endpoint == "" {
			errs = append(errs, &InvalidRecordError{Index: i, Reason: "missing endpoint"})
			continue
		}

		rec := TrafficRecord{
			Endpoint:   endpoint,
			Method:     normalizeMethod(el.Get("method").String()),
			StatusCode: int(el.Get("status_code").Int()),
			ClientID:   el.Get("client_id").String(),
		}
		if rec.StatusCode == 0 {
			rec.StatusCode = 200
		}
		if body := el.Get("request_body"); body.Exists() {
			rec.RequestBody = body.Value()
		}
		if body := el.Get("response_body"); body.Exists() {
			rec.ResponseBody = body.Value()
		}
		rec.Headers = decodeHeaders(el.Get("headers"))
		rec.Timestamp = decodeTimestamp(el.Get("timestamp"))

		records = append(records, rec)
	}
	return records, errs
}

// DecodeUsageLogs decodes a JSON array of client usage log entries with the
// same per-entry recovery policy as DecodeTrafficRecords. A missing count
// defaults to 1.
func DecodeUsageLogs(data []byte) ([]UsageLog, []error) {
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, []error{&InvalidRecordError{Index: -1, Reason: "input is not a JSON array"}}
	}

	var (
		logs []UsageLog
		errs []error
	)
	for i, el := range root.Array() {
		if !el.IsObject() {
			errs = append(errs, &InvalidRecordError{Index: i, Reason: "log entry is not a JSON object"})
			continue
		}
		endpoint := el.Get("endpoint").String()
		if endpoint == "" {
			errs = append(errs, &InvalidRecordError{Index: i, Reason: "missing endpoint"})
			continue
		}

		log := UsageLog{
			ClientID: el.Get("client_id").String(),
			Endpoint: endpoint,
			Method:   normalizeMethod(el.Get("method").String()),
			Count:    int(el.Get("count").Int()),
		}
		if log.Count <= 0 {
			log.Count = 1
		}
		log.Headers = decodeHeaders(el.Get("headers"))
		log.Timestamp = decodeTimestamp(el.Get("timestamp"))

		logs = append(logs, log)
	}
	return logs, errs
}

func normalizeMethod(method string) string {
	if method == "" {
		return "GET"
	}
	return strings.ToUpper(method)
}

func decodeHeaders(v gjson.Result) map[string]string {
	if !v.IsObject() {
		return nil
	}
	headers := make(map[string]string)
	v.ForEach(func(key, value gjson.Result) bool {
		headers[key.String()] = value.String()
		return true
	})
	return headers
}

func decodeTimestamp(v gjson.Result) time.Time {
	if !v.Exists() {
		return time.Time{}
	}
	raw := strings.TrimSuffix(v.String(), "Z") + "Z"
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, v.String()); err == nil {
			return ts
		}
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
