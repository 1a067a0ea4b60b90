package prom

import (
	"errors"
	"fmt"
	"sync"

	xhttp "github.com/nimasrn/community-gateway/pkg/http"
	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemPayment  = "payment"
	SystemPayout   = "payout"
	SystemChat     = "chat"
	SystemRealtime = "realtime"
	SystemQueue    = "queue"
)

const (
	MetricReconciliations        = "reconciliations_total"
	MetricGatewayRequestDuration = "gateway_request_duration_seconds"
	MetricWithdrawals            = "withdrawals_total"
	MetricMessagesSent           = "messages_sent_total"
	MetricPublishFailures        = "publish_failures_total"
	MetricCallbacksProcessed     = "callbacks_processed_total"
	MetricCallbacksInFlight      = "callbacks_in_flight"
	MetricRelayConnections       = "relay_connections"
	MetricRelayDropped           = "relay_dropped_total"
)

const (
	TypeCounter      = "counter"
	TypeCounterVec   = "counterVec"
	TypeHistogram    = "histogram"
	TypeHistogramVec = "histogramVec"
	TypeGaugeVec     = "gaugeVec"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var MetricCollectionCounters = make(map[string]prometheus.Counter)
var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogram = make(map[string]prometheus.Histogram)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers every application metric and enables recording. Calling it
// again reuses the collectors already registered.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = prometheus.Labels{
		"env":      env,
		"instance": host,
	}
	namespace = nameSpace
	MetricSystemEnabled = true

	return errors.Join(
		CreateMetric(TypeCounterVec, SystemPayment, MetricReconciliations, "status"),
		CreateMetric(TypeHistogramVec, SystemPayment, MetricGatewayRequestDuration, "outcome"),
		CreateMetric(TypeCounterVec, SystemPayout, MetricWithdrawals, "result"),
		CreateMetric(TypeCounterVec, SystemChat, MetricMessagesSent, "type"),
		CreateMetric(TypeCounter, SystemRealtime, MetricPublishFailures),
		CreateMetric(TypeCounterVec, SystemQueue, MetricCallbacksProcessed, "result"),
		CreateMetric(TypeGaugeVec, SystemQueue, MetricCallbacksInFlight, "queue"),
		CreateMetric(TypeGaugeVec, SystemRealtime, MetricRelayConnections, "edge"),
		CreateMetric(TypeCounterVec, SystemRealtime, MetricRelayDropped, "reason"),
	)
}

func CreateMetric(metricType, metricSubsystem, metricName string, labelsValues ...string) error {
	switch metricType {
	case TypeCounter:
		return createCounter(metricSubsystem, metricName)
	case TypeCounterVec:
		return createCounterVec(metricSubsystem, metricName, labelsValues)
	case TypeHistogram:
		return createHistogram(metricSubsystem, metricName)
	case TypeHistogramVec:
		return createHistogramVec(metricSubsystem, metricName, labelsValues)
	case TypeGaugeVec:
		return createGaugeVec(metricSubsystem, metricName, labelsValues)
	}
	return fmt.Errorf("metric type %s is not defined", metricType)
}

func ListenAndServer(addr string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

// register adds c to the default registry, returning the collector that is
// actually registered under that description.
func register[T prometheus.Collector](c T) (T, error) {
	err := prometheus.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

func createCounter(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	c, err := register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}))
	MetricCollectionCounters[subsystem+name] = c
	return err
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	c, err := register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels))
	MetricCollectionCounterVec[subsystem+name] = c
	return err
}

func createHistogram(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	h, err := register(prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	}))
	MetricCollectionHistogram[subsystem+name] = h
	return err
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	h, err := register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels))
	MetricCollectionHistogramVec[subsystem+name] = h
	return err
}

func createGaugeVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	g, err := register(prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels))
	MetricCollectionGaugeVec[subsystem+name] = g
	return err
}

func IncCounter(subsystem, name string) {
	AddCounter(subsystem, name, 1)
}

func AddCounter(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounters[subsystem+name]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func AddGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func AddReconciliation(status string) {
	IncCounterVec(SystemPayment, MetricReconciliations, status)
}

func AddGatewayRequestDuration(seconds float64, outcome string) {
	AddHistogramVec(SystemPayment, MetricGatewayRequestDuration, seconds, outcome)
}

func AddWithdrawal(result string) {
	IncCounterVec(SystemPayout, MetricWithdrawals, result)
}

func AddMessageSent(messageType string) {
	IncCounterVec(SystemChat, MetricMessagesSent, messageType)
}

func IncPublishFailure() {
	IncCounter(SystemRealtime, MetricPublishFailures)
}

func AddCallbackProcessed(result string) {
	IncCounterVec(SystemQueue, MetricCallbacksProcessed, result)
}

func AddCallbacksInFlight(queue string, delta float64) {
	AddGaugeVec(SystemQueue, MetricCallbacksInFlight, delta, queue)
}

func AddRelayConnections(edge string, delta float64) {
	AddGaugeVec(SystemRealtime, MetricRelayConnections, delta, edge)
}

func AddRelayDropped(reason string) {
	IncCounterVec(SystemRealtime, MetricRelayDropped, reason)
}
