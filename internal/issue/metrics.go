package issue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	committedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issuance_committed_total",
		Help: "Проведённые выдачи.",
	})
	failedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "issuance_failed_total",
		Help: "Неуспешные выдачи по фазам протокола.",
	}, []string{"phase"})
	issuedQtyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issuance_issued_quantity_total",
		Help: "Суммарное выданное количество (во всех ЕИ).",
	})
)
