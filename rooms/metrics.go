package rooms

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "room_count",
		Help: "The number of rooms.",
	})

	roomCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "room_count_total",
		Help: "The total number of rooms.",
	})

	placedObjects = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "room_placed_objects",
		Help: "The number of objects placed in rooms.",
	})
)

func instrumentAddRoom() {
	roomCount.Inc()
	roomCountTotal.Inc()
}

func instrumentRemoveRoom(objects int) {
	roomCount.Dec()
	placedObjects.Sub(float64(objects))
}

func instrumentPlacedObjects(delta int) {
	placedObjects.Add(float64(delta))
}
