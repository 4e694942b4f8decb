package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"petadopt/internal/infra/outbox"
)

// stubStore hands out queued documents and records outcomes.
type stubStore struct {
	mu       sync.Mutex
	queued   []*outbox.EventDocument
	claimErr error
	claims   int
	sent     []string
	failed   []string
}

func (s *stubStore) Claim(ctx context.Context, workerID string) (*outbox.EventDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if len(s.queued) == 0 {
		return nil, nil
	}
	doc := s.queued[0]
	s.queued = s.queued[1:]
	return doc, nil
}

func (s *stubStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *stubStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubStore) claimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims
}

func (s *stubStore) sentIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func (s *stubStore) failedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.failed...)
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type stubProducer struct {
	mu     sync.Mutex
	err    error
	record []published
}

func (p *stubProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.record = append(p.record, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func (p *stubProducer) messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.record...)
}

func eventDoc(id, name string) *outbox.EventDocument {
	return &outbox.EventDocument{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"conversation_id":"c-1"}`),
		OccurredAt: time.Date(2026, time.April, 5, 9, 0, 0, 0, time.UTC),
		Aggregate:  "c-1",
	}
}

var _ = Describe("Worker", func() {
	var (
		store    *stubStore
		producer *stubProducer
		worker   *outbox.Worker
	)

	BeforeEach(func() {
		store = &stubStore{}
		producer = &stubProducer{}
		worker = &outbox.Worker{
			Store:    store,
			Producer: producer,
			Interval: time.Millisecond,
		}
	})

	runFor := func(d time.Duration) error {
		ctx, cancel := context.WithTimeout(context.Background(), d)
		defer cancel()
		return worker.Run(ctx)
	}

	It("refuses to run without its dependencies", func() {
		err := (&outbox.Worker{}).Run(context.Background())
		Expect(err).To(MatchError(outbox.ErrWorkerNotConfigured))
	})

	It("ships a claimed record as a CloudEvent and marks it sent", func() {
		store.queued = append(store.queued, eventDoc("evt-1", "chat.message_sent"))

		err := runFor(100 * time.Millisecond)
		Expect(err).To(MatchError(context.DeadlineExceeded))

		Expect(store.sentIDs()).To(Equal([]string{"evt-1"}))
		msgs := producer.messages()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].topic).To(Equal("chat.events.v1"))
		Expect(msgs[0].key).To(Equal("c-1"))
		Expect(msgs[0].headers).To(HaveKeyWithValue("content-type", "application/cloudevents+json"))

		var evt map[string]any
		Expect(json.Unmarshal(msgs[0].payload, &evt)).To(Succeed())
		Expect(evt["specversion"]).To(Equal("1.0"))
		Expect(evt["type"]).To(Equal("chat.message_sent.v1"))
		Expect(evt["data"]).To(HaveKeyWithValue("conversation_id", "c-1"))
	})

	It("marks a record failed when the broker rejects it", func() {
		store.queued = append(store.queued, eventDoc("evt-1", "chat.message_sent"))
		producer.err = errors.New("broker down")

		err := runFor(100 * time.Millisecond)
		Expect(err).To(MatchError(context.DeadlineExceeded))

		Expect(store.failedIDs()).To(Equal([]string{"evt-1"}))
		Expect(store.sentIDs()).To(BeEmpty())
	})

	It("keeps polling after a store claim error", func() {
		store.claimErr = errors.New("connection reset")

		err := runFor(100 * time.Millisecond)
		Expect(err).To(MatchError(context.DeadlineExceeded))

		Expect(store.claimCount()).To(BeNumerically(">", 1))
	})

	It("prefixes topics when configured", func() {
		worker.TopicPrefix = "staging."
		store.queued = append(store.queued, eventDoc("evt-1", "chat.conversation_started"))

		err := runFor(100 * time.Millisecond)
		Expect(err).To(MatchError(context.DeadlineExceeded))

		msgs := producer.messages()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].topic).To(Equal("staging.chat.events.v1"))
	})
})
