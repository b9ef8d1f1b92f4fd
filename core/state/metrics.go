package state

import "github.com/evmstate/evmstate/metrics"

var (
	metricAccountLoads = metrics.LazyLoadCounterVec("account_load_count", []string{"temperature"})
	metricSlotLoads    = metrics.LazyLoadCounterVec("storage_load_count", []string{"temperature"})
	metricReverts      = metrics.LazyLoadCounter("checkpoint_revert_count")
	metricTxBoundaries = metrics.LazyLoadCounterVec("tx_boundary_count", []string{"outcome"})
)

func countLoad(meter func() metrics.CountVecMeter, cold bool) {
	temperature := "warm"
	if cold {
		temperature = "cold"
	}
	meter().AddWithLabel(1, map[string]string{"temperature": temperature})
}

func countTxBoundary(outcome string) {
	metricTxBoundaries().AddWithLabel(1, map[string]string{"outcome": outcome})
}
