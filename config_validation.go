package cloudflareip

import (
	"fmt"
	"reflect"
)

func (c *config) validate() error {
	if isNilInterface(c.rangeSource) {
		return fmt.Errorf("range source cannot be nil")
	}
	if c.clientIPHeader == "" {
		return fmt.Errorf("client IP header name cannot be empty")
	}
	if c.forwardedForHeader == "" {
		return fmt.Errorf("forwarded-for header name cannot be empty")
	}
	if c.clientIPHeader == c.forwardedForHeader {
		return fmt.Errorf("client IP header and forwarded-for header must differ, both are %q", c.clientIPHeader)
	}
	if c.spoofHandler == nil {
		return fmt.Errorf("spoof handler cannot be nil")
	}
	if isNilLogger(c.logger) {
		return fmt.Errorf("logger cannot be nil")
	}
	if isNilMetrics(c.metrics) {
		return fmt.Errorf("metrics cannot be nil")
	}
	return nil
}

func isNilLogger(logger Logger) bool {
	return isNilInterface(logger)
}

func isNilMetrics(metrics Metrics) bool {
	return isNilInterface(metrics)
}

func isNilInterface(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
