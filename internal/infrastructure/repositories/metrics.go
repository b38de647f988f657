package repositories

import (
	"time"

	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// observeQuery times one repository query for the database duration
// histogram. Usage: defer observeQuery("select", "transactions")().
func observeQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		metrics.RecordDatabaseQuery(operation, table, time.Since(start).Seconds())
	}
}
