package notify_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/notify"
)

var _ = Describe("Notifier", func() {
	var (
		logger *logrus.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		ctx = context.Background()
	})

	It("does nothing when no webhook URL is configured", func() {
		n := notify.NewNotifier("", "#alerts", logger)
		// Would panic/error on an actual POST attempt; absence of one is the assertion.
		n.NotifyRunIssue(ctx, "greentech", notify.ReasonAllCandidatesFailed, "0/12 candidates scored")
	})

	It("posts a webhook payload mentioning the project and reason", func() {
		var received int32
		var mu sync.Mutex
		var body string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&received, 1)
			buf, _ := io.ReadAll(r.Body)
			mu.Lock()
			body = string(buf)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		n := notify.NewNotifier(server.URL, "#alerts", logger)
		n.NotifyRunIssue(ctx, "greentech", notify.ReasonPersistenceUnverified, "expected 5 rows, found 3")

		Expect(atomic.LoadInt32(&received)).To(Equal(int32(1)))
		mu.Lock()
		defer mu.Unlock()
		Expect(body).To(ContainSubstring("greentech"))
		Expect(body).To(ContainSubstring("persistence_unverified"))
	})

	It("swallows a delivery failure without panicking", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		n := notify.NewNotifier(server.URL, "#alerts", logger)
		Expect(func() {
			n.NotifyRunIssue(ctx, "greentech", notify.ReasonAllCandidatesFailed, "0/12 candidates scored")
		}).NotTo(Panic())
	})
})
