package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	Register()
	Register() // idempotent

	IncHTTP("test")
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("test")))

	IncAdmission("accepted")
	IncAdmission("accepted")
	assert.Equal(t, 2.0, testutil.ToFloat64(admissions.WithLabelValues("accepted")))

	IncNotification("webhook", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(notifications.WithLabelValues("webhook", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(notifications.WithLabelValues("webhook", "sent")))

	ObserveLockWait(time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(lockWait))
}
